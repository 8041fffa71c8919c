package types

import (
	"testing"

	"go.viam.com/test"

	"github.com/symonb/drone-knr/internal/vehicle"
)

func TestDecodeCommand(t *testing.T) {
	msg, err := DecodeCommand([]byte(`{"command":"goto-relative","payload":{"north":10,"east":-2.5},"id":"abc"}`), "mqtt", "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.MessageType, test.ShouldEqual, GotoRelative)
	test.That(t, msg.ID, test.ShouldEqual, "abc")
	test.That(t, msg.From, test.ShouldEqual, "mqtt")
	test.That(t, msg.To, test.ShouldEqual, "drone-1")
	test.That(t, msg.Message, test.ShouldResemble, GotoRelativeRequest{vehicle.LocalPose{North: 10, East: -2.5}})

	msg, err = DecodeCommand([]byte(`{"command":"goto-global","payload":{"lat":0.0001,"alt":2}}`), "ros", "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Message, test.ShouldResemble, GotoGlobalRequest{vehicle.GlobalPose{Lat: 0.0001, Alt: 2}})
	test.That(t, msg.ID, test.ShouldNotBeEmpty)

	msg, err = DecodeCommand([]byte(`{"command":"arm"}`), "mqtt", "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Message, test.ShouldResemble, ArmRequest{})

	msg, err = DecodeCommand([]byte(`{"command":"takeoff","payload":{"altitude":10}}`), "mqtt", "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Message, test.ShouldResemble, TakeoffRequest{Altitude: 10})

	msg, err = DecodeCommand([]byte(`{"command":"land","id":"land-1"}`), "mqtt", "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Message, test.ShouldResemble, LandRequest{})
	test.That(t, msg.ID, test.ShouldEqual, "land-1")

	msg, err = DecodeCommand([]byte(`{"command":"cancel","payload":{"id":"abc"}}`), "mqtt", "drone-1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg.Message, test.ShouldResemble, CancelRequest{ID: "abc"})
}

func TestDecodeCommandErrors(t *testing.T) {
	_, err := DecodeCommand([]byte(`not json`), "mqtt", "drone-1")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeCommand([]byte(`{"command":"self-destruct"}`), "mqtt", "drone-1")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown command")

	_, err = DecodeCommand([]byte(`{"command":"takeoff","payload":{"altitude":"high"}}`), "mqtt", "drone-1")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReplyKeepsCorrelation(t *testing.T) {
	req := CreateMessage(Arm, "mqtt", "drone-1", ArmRequest{})
	reply := req.Reply(ArmResult, ActionResult{ID: req.ID, Action: Arm, Result: 1})

	test.That(t, reply.From, test.ShouldEqual, "drone-1")
	test.That(t, reply.To, test.ShouldEqual, "mqtt")
	test.That(t, reply.ID, test.ShouldEqual, req.ID)
	test.That(t, reply.Addressed("mqtt"), test.ShouldBeTrue)
	test.That(t, reply.Addressed("ros"), test.ShouldBeFalse)

	broadcast := CreateMessage(Telemetry, "drone-1", Broadcast, TelemetryReport{})
	test.That(t, broadcast.Addressed("ros"), test.ShouldBeTrue)

	s, err := reply.ToStringMessage()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Message, test.ShouldEqual, `{"id":"`+req.ID+`","action":"arm","result":1}`)
}
