package ros2app

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	std_msgs "github.com/tiiuae/rclgo-msgs/std_msgs/msg"
	"github.com/tiiuae/rclgo/pkg/rclgo"

	"github.com/symonb/drone-knr/internal/types"
)

// Name is the bus address of the ROS 2 transport.
const Name = "ros"

const (
	CommandsTopic = "drone_handler/commands"
	EventsTopic   = "drone_handler/events"
)

type bridge struct {
	node     *rclgo.Node
	deviceID string
	pub      *rclgo.Publisher
}

// NewBridge accepts JSON command envelopes on CommandsTopic and publishes
// every message addressed to the ROS transport on EventsTopic.
func NewBridge(node *rclgo.Node, deviceID string) (types.MessageHandler, error) {
	pub, err := NewPublisher(node, EventsTopic, "std_msgs/String")
	if err != nil {
		return nil, err
	}
	return &bridge{node, deviceID, pub}, nil
}

func (b *bridge) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	subs := NewSubscriptions(b.node)
	subs.Add(CommandsTopic, "std_msgs/String", func(s *rclgo.Subscription) {
		var m std_msgs.String
		_, rclErr := s.TakeMessage(&m)
		if rclErr != nil {
			log.Print("TakeMessage failed: drone_handler/commands")
			return
		}

		msg, err := types.DecodeCommand([]byte(m.Data), Name, b.deviceID)
		if err != nil {
			log.Printf("Could not decode ROS command: %v", err)
			b.publish(types.CreateMessage(types.CommandRejected, b.deviceID, Name, types.Rejected{Reason: err.Error()}))
			return
		}
		post(msg)
	})
	if err := subs.Subscribe(ctx, wg); err != nil {
		log.Printf("ROS commands unavailable: %v", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		b.pub.Close()
	}()
}

func (b *bridge) Receive(message types.Message) {
	if !message.Addressed(Name) {
		return
	}
	b.publish(message)
}

func (b *bridge) publish(message types.Message) {
	s, err := message.ToStringMessage()
	if err != nil {
		log.Printf("Could not marshal %s: %v", message.MessageType, err)
		return
	}
	data, _ := json.Marshal(s)
	if err := b.pub.Publish(CreateString(string(data))); err != nil {
		log.Printf("Failed to publish %s: %v", message.MessageType, err)
	}
}
