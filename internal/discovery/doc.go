// Package discovery advertises the kiosk portal and locates the telemetry
// broker over multicast DNS.
//
// The kiosk registers its portal as an "_http._tcp" service so phones on
// the same network can open it as http://<instance>.local. When the broker
// host is configured as "auto", the broker is found by browsing for
// "_mqtt._tcp" (or "_nats._tcp" for the NATS transport) and taking the
// first service that resolves to an address.
//
// # Usage Example
//
//	// Advertise until ctx is cancelled
//	go discovery.Advertise(ctx, "orion", 3000, []string{"path=/"})
//
//	// Resolve the broker
//	svc, err := discovery.FindBroker(ctx, "mqtt", 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(svc.Address())
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The broker must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
