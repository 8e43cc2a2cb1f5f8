package mavlink

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bluenviron/gomavlib/v3"
)

const defaultBaud = 57600

// ParseAddress converts a connection address into a gomavlib endpoint.
//
//	serial://<device>[:baud]   serial port
//	udp://[host]:port          listen for datagrams
//	udpout://host:port         send datagrams to host
//	tcp://host:port            connect to a TCP server
func ParseAddress(address string) (gomavlib.EndpointConf, error) {
	scheme, rest, ok := strings.Cut(address, "://")
	if !ok || rest == "" {
		return nil, fmt.Errorf("invalid address %q", address)
	}

	switch scheme {
	case "serial":
		device, baud := rest, defaultBaud
		if i := strings.LastIndex(rest, ":"); i > 0 {
			n, err := strconv.Atoi(rest[i+1:])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid baud rate in %q", address)
			}
			device, baud = rest[:i], n
		}
		return gomavlib.EndpointSerial{Device: device, Baud: baud}, nil
	case "udp", "udpout", "tcp":
		if _, _, err := net.SplitHostPort(rest); err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", address, err)
		}
	default:
		return nil, fmt.Errorf("unsupported scheme %q in %q", scheme, address)
	}

	switch scheme {
	case "udp":
		return gomavlib.EndpointUDPServer{Address: rest}, nil
	case "udpout":
		return gomavlib.EndpointUDPClient{Address: rest}, nil
	default:
		return gomavlib.EndpointTCPClient{Address: rest}, nil
	}
}
