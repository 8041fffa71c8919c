package ros2app

import (
	"github.com/pkg/errors"
	std_msgs "github.com/tiiuae/rclgo-msgs/std_msgs/msg"
	"github.com/tiiuae/rclgo/pkg/rclgo"
	"github.com/tiiuae/rclgo/pkg/rclgo/typemap"
	"github.com/tiiuae/rclgo/pkg/rclgo/types"
)

func NewPublisher(rclNode *rclgo.Node, topicName string, messageType string) (*rclgo.Publisher, error) {
	ros2msg, ok := typemap.GetMessage(messageType)
	if !ok {
		return nil, errors.Errorf("Unable to map message type: %s", messageType)
	}
	opts := rclgo.NewDefaultPublisherOptions()
	opts.Qos.Reliability = rclgo.RmwQosReliabilityPolicyReliable
	pub, err := rclNode.NewPublisher(topicName, ros2msg, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "Unable to create publisher for %s", topicName)
	}

	return pub, nil
}

func CreateString(value string) types.Message {
	rosmsg := std_msgs.NewString()
	rosmsg.Data = value
	return rosmsg
}
