package mavlink

import (
	"testing"

	"github.com/bluenviron/gomavlib/v3"
	"go.viam.com/test"
)

func TestParseEndpoint(t *testing.T) {
	for _, tc := range []struct {
		connect string
		want    gomavlib.EndpointConf
	}{
		{"127.0.0.1:14550", gomavlib.EndpointUDPServer{Address: "127.0.0.1:14550"}},
		{"localhost:14550", gomavlib.EndpointUDPServer{Address: "localhost:14550"}},
		{"udp:0.0.0.0:14550", gomavlib.EndpointUDPServer{Address: "0.0.0.0:14550"}},
		{"udpout:10.0.0.2:14550", gomavlib.EndpointUDPClient{Address: "10.0.0.2:14550"}},
		{"tcp:127.0.0.1:5760", gomavlib.EndpointTCPClient{Address: "127.0.0.1:5760"}},
		{"/dev/ttyUSB0", gomavlib.EndpointSerial{Device: "/dev/ttyUSB0", Baud: DefaultBaud}},
		{"serial:/dev/ttyAMA0", gomavlib.EndpointSerial{Device: "/dev/ttyAMA0", Baud: DefaultBaud}},
	} {
		t.Run(tc.connect, func(t *testing.T) {
			got, err := parseEndpoint(tc.connect, DefaultBaud)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, got, test.ShouldResemble, tc.want)
		})
	}
}

func TestParseEndpointErrors(t *testing.T) {
	_, err := parseEndpoint("", DefaultBaud)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = parseEndpoint("tcp:", DefaultBaud)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = parseEndpoint("/dev/ttyUSB0", 0)
	test.That(t, err, test.ShouldNotBeNil)
}
