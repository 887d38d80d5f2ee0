package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service is a service instance resolved over mDNS.
type Service struct {
	// Instance is the advertised instance name (e.g., "mosquitto")
	Instance string

	// Hostname is the mDNS hostname (e.g., "raspberrypi.local.")
	Hostname string

	// IP is the preferred address, IPv4 when one was advertised
	IP string

	Port int

	// Metadata contains the TXT record key/value pairs
	Metadata map[string]string

	DiscoveredAt time.Time
}

func (s *Service) String() string {
	return fmt.Sprintf("%s (%s) at %s", s.Instance, s.Hostname, s.Address())
}

// Address returns host:port suitable for dialing.
func (s *Service) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Service) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
