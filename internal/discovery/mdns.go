package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/logging"
)

const (
	// PortalService is the service type the kiosk portal is advertised as
	PortalService = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout bounds FindBroker when no timeout is given
	DefaultScanTimeout = 5 * time.Second
)

// brokerServices maps a transport name to the service type its broker
// advertises.
var brokerServices = map[string]string{
	"mqtt": "_mqtt._tcp",
	"nats": "_nats._tcp",
}

// BrokerService returns the mDNS service type for a transport.
func BrokerService(transport string) (string, error) {
	svc, ok := brokerServices[strings.ToLower(transport)]
	if !ok {
		return "", fmt.Errorf("no mDNS service type for transport %q", transport)
	}
	return svc, nil
}

// Advertise registers the portal over mDNS and keeps it registered until
// ctx is cancelled.
func Advertise(ctx context.Context, instance string, port int, text []string) error {
	server, err := zeroconf.Register(instance, PortalService, ServiceDomain, port, text, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising portal over mDNS",
		zap.String("instance", instance),
		zap.String("service", PortalService),
		zap.Int("port", port),
	)

	<-ctx.Done()
	server.Shutdown()
	logging.Debug("mDNS advertisement withdrawn", zap.String("instance", instance))
	return nil
}

// FindBroker browses for the broker of the given transport and returns the
// first instance that resolves to an address.
func FindBroker(ctx context.Context, transport string, timeout time.Duration) (*Service, error) {
	serviceType, err := BrokerService(transport)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Service, 1)

	go func() {
		for entry := range entries {
			if svc := parseServiceEntry(entry); svc != nil {
				select {
				case found <- svc:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, serviceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	select {
	case svc := <-found:
		logging.Info("Broker discovered", zap.String("service", svc.String()))
		return svc, nil
	default:
		return nil, fmt.Errorf("no %s broker found within %s", transport, timeout)
	}
}

// parseServiceEntry converts a zeroconf entry to a Service. Entries without
// an address are skipped.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Service {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Service{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
