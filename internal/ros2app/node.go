package ros2app

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tiiuae/rclgo/pkg/rclgo"
)

// Open creates the rcl context and the drone_handler node in namespace.
// Closing the returned context releases the node.
func Open(wg *sync.WaitGroup, namespace string) (*rclgo.Context, *rclgo.Node, error) {
	rclArgs, err := rclgo.NewRCLArgs("")
	if err != nil {
		return nil, nil, errors.WithMessage(err, "parse rcl args")
	}

	rclContext, err := rclgo.NewContext(wg, 0, rclArgs)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "create rcl context")
	}

	node, err := rclContext.NewNode("drone_handler", namespace)
	if err != nil {
		rclContext.Close()
		return nil, nil, errors.WithMessage(err, "create node")
	}
	return rclContext, node, nil
}
