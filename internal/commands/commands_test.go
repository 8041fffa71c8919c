package commands

import (
	"testing"

	"go.viam.com/test"

	"github.com/symonb/drone-knr/internal/types"
	"github.com/symonb/drone-knr/internal/vehicle"
)

func TestTopics(t *testing.T) {
	test.That(t, commandTopic("drone-1"), test.ShouldEqual, "/devices/drone-1/commands/")
	test.That(t, eventTopic("drone-1", types.GotoProgress), test.ShouldEqual, "/devices/drone-1/events/goto-progress")
}

func TestDecodeCommand(t *testing.T) {
	msg, err := decodeCommand("/devices/drone-1/commands/goto",
		[]byte(`{"command":"goto-relative","payload":{"north":10},"id":"g1"}`), "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.From, test.ShouldEqual, Name)
	test.That(t, msg.To, test.ShouldEqual, "drone-1")
	test.That(t, msg.ID, test.ShouldEqual, "g1")
	test.That(t, msg.Message, test.ShouldResemble, types.GotoRelativeRequest{LocalPose: vehicle.LocalPose{North: 10}})

	msg, err = decodeCommand("/devices/drone-1/commands/control", []byte(`{"command":"arm"}`), "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.MessageType, test.ShouldEqual, types.Arm)

	msg, err = decodeCommand("/devices/drone-1/commands/control", []byte(`{"command":"land"}`), "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.MessageType, test.ShouldEqual, types.Land)

	msg, err = decodeCommand("/devices/drone-1/commands/query", []byte(`{"command":"get-attitude"}`), "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.MessageType, test.ShouldEqual, types.GetAttitude)
}

func TestDecodeCommandRejects(t *testing.T) {
	_, err := decodeCommand("/devices/drone-1/commands/videostream", []byte(`{"command":"arm"}`), "drone-1")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown command subfolder")

	_, err = decodeCommand("/devices/drone-1/commands/query", []byte(`{"command":"arm"}`), "drone-1")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not accepted on query")

	_, err = decodeCommand("/devices/drone-1/commands/control", []byte(`{`), "drone-1")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEverySubfolderCommandIsARequest(t *testing.T) {
	for _, commands := range subfolders {
		for _, c := range commands {
			test.That(t, types.IsRequest(c), test.ShouldBeTrue)
		}
	}
}

func TestIsTrustCommand(t *testing.T) {
	payload := []byte(`{"command":"initialize-trust"}`)
	test.That(t, isTrustCommand("/devices/drone-1/commands/control", payload, "drone-1"), test.ShouldBeTrue)
	test.That(t, isTrustCommand("/devices/drone-1/commands/query", payload, "drone-1"), test.ShouldBeFalse)
	test.That(t, isTrustCommand("/devices/drone-1/commands/control", []byte(`{"command":"arm"}`), "drone-1"), test.ShouldBeFalse)
}
