// Package kiosk assembles the kiosk from its components and supervises
// them.
//
// App owns the shared state and starts, under one errgroup:
//
//   - the navigation loop
//   - the device metrics refresher
//   - the status heartbeat
//   - the portal and its mDNS advertisement, when enabled
//   - any extra tasks supplied by the caller (touch interrupt loop,
//     simulated meter feed)
//
// The first task to fail cancels the others. Telemetry is delivered on the
// transport's own goroutine.
package kiosk
