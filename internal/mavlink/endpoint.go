package mavlink

import (
	"strings"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/pkg/errors"
)

// parseEndpoint maps a dronekit style connection string to a gomavlib endpoint.
//
//	127.0.0.1:14550            listen for UDP (default)
//	udp:127.0.0.1:14550        listen for UDP
//	udpout:10.0.0.2:14550      send UDP to a remote vehicle
//	tcp:127.0.0.1:5760         TCP client
//	/dev/ttyUSB0, serial:/dev/ttyAMA0   serial port at baud
func parseEndpoint(connect string, baud int) (gomavlib.EndpointConf, error) {
	connect = strings.TrimSpace(connect)
	if connect == "" {
		return nil, errors.New("empty connection string")
	}

	scheme, address := "udp", connect
	if i := strings.Index(connect, ":"); i > 0 && !strings.Contains(connect[:i], ".") {
		switch prefix := connect[:i]; prefix {
		case "udp", "udpin", "udpout", "tcp", "serial":
			scheme, address = prefix, connect[i+1:]
		}
	}
	if strings.HasPrefix(connect, "/dev/") || strings.HasPrefix(connect, "COM") {
		scheme = "serial"
	}
	if address == "" {
		return nil, errors.Errorf("missing address in %q", connect)
	}

	switch scheme {
	case "udp", "udpin":
		return gomavlib.EndpointUDPServer{Address: address}, nil
	case "udpout":
		return gomavlib.EndpointUDPClient{Address: address}, nil
	case "tcp":
		return gomavlib.EndpointTCPClient{Address: address}, nil
	case "serial":
		if baud <= 0 {
			return nil, errors.Errorf("invalid baud %d for %s", baud, address)
		}
		return gomavlib.EndpointSerial{Device: address, Baud: baud}, nil
	}
	return nil, errors.Errorf("unsupported connection string %q", connect)
}
