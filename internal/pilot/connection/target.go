package connection

import (
	"fmt"
	"net"
	"strconv"

	"github.com/autopeer-io/dronecontrol/pkg/options"
)

// Target names the transport to the vehicle: a serial device or a UDP endpoint.
type Target struct {
	// Serial is the device path. When set, the network fields are ignored.
	Serial string
	Baud   int

	// Host may be empty to listen on every interface.
	Host string
	Port int
}

// TargetFromOptions resolves the configured transport.
func TargetFromOptions(o *options.VehicleOptions) Target {
	if o.UseSerial {
		return Target{Serial: o.Serial, Baud: o.Baud}
	}
	return Target{Host: o.Host, Port: o.Port}
}

// IsSerial reports whether the target is a serial device.
func (t Target) IsSerial() bool {
	return t.Serial != ""
}

// Address renders the transport address: serial://<device>[:baud] or udp://[host]:port.
func (t Target) Address() string {
	if t.IsSerial() {
		if t.Baud > 0 {
			return fmt.Sprintf("serial://%s:%d", t.Serial, t.Baud)
		}
		return "serial://" + t.Serial
	}
	return "udp://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	return t.Address()
}
