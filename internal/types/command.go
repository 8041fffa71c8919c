package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Command is the envelope shared by the MQTT and ROS transports:
//
//	{"command": "goto-relative", "payload": {"north": 10}, "id": "..."}
type Command struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ID      string          `json:"id,omitempty"`
}

var requestPayloads = map[string]func() interface{}{
	GetAttitude:         func() interface{} { return &AttitudeQuery{} },
	GetLocationRelative: func() interface{} { return &LocationRelativeQuery{} },
	GetStatus:           func() interface{} { return &StatusRequest{} },
	Arm:                 func() interface{} { return &ArmRequest{} },
	Takeoff:             func() interface{} { return &TakeoffRequest{} },
	Land:                func() interface{} { return &LandRequest{} },
	GotoRelative:        func() interface{} { return &GotoRelativeRequest{} },
	GotoGlobal:          func() interface{} { return &GotoGlobalRequest{} },
	Cancel:              func() interface{} { return &CancelRequest{} },
}

// DecodeCommand parses a command envelope into a bus message from transport to device.
// The envelope id becomes the message id, so replies can be correlated; a fresh
// uuid is used when it is missing.
func DecodeCommand(data []byte, from, to string) (Message, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Message{}, errors.Wrap(err, "could not unmarshal command")
	}
	cmd.Command = strings.TrimSpace(cmd.Command)

	newPayload, ok := requestPayloads[cmd.Command]
	if !ok {
		return Message{}, errors.Errorf("unknown command: %q", cmd.Command)
	}
	payload := newPayload()
	if len(cmd.Payload) > 0 && string(cmd.Payload) != "null" {
		if err := json.Unmarshal(cmd.Payload, payload); err != nil {
			return Message{}, errors.Wrapf(err, "could not unmarshal %s payload", cmd.Command)
		}
	}

	id := cmd.ID
	if id == "" {
		id = uuid.New().String()
	}

	return Message{
		Timestamp:   time.Now().UTC(),
		From:        from,
		To:          to,
		ID:          id,
		MessageType: cmd.Command,
		Message:     derefPayload(payload),
	}, nil
}

// IsRequest reports whether messageType is a command the device accepts.
func IsRequest(messageType string) bool {
	_, ok := requestPayloads[messageType]
	return ok
}

func derefPayload(p interface{}) interface{} {
	switch v := p.(type) {
	case *AttitudeQuery:
		return *v
	case *LocationRelativeQuery:
		return *v
	case *StatusRequest:
		return *v
	case *ArmRequest:
		return *v
	case *LandRequest:
		return *v
	case *TakeoffRequest:
		return *v
	case *GotoRelativeRequest:
		return *v
	case *GotoGlobalRequest:
		return *v
	case *CancelRequest:
		return *v
	}
	return p
}
