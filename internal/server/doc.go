// Package server implements the kiosk's local HTTP portal.
//
// The portal is served on the kiosk's own network and exposes:
//
//	GET  /               setup summary (plain text)
//	GET  /healthz        liveness probe
//	GET  /api/state      JSON snapshot of the application state
//	GET  /api/version    build information
//	POST /api/gesture    inject a gesture, e.g. {"gesture":"tap","x":120,"y":220}
//	GET  /api/screen.png the frame last pushed to the display
//	GET  /ws             WebSocket stream of state snapshots
//	GET  /metrics        Prometheus metrics
//
// The QR code on the WiFi "Change WiFi" screen points at this portal.
// Gesture injection goes through the same gesture.Cell the touch
// controller writes to, so injected gestures are debounced and dispatched
// by the navigation loop exactly like real touches. It is only routed when
// the portal is built WithInjector, which the kiosk does only when
// portal.allow_gestures is set. Gesture posts must be application/json, and
// gesture posts and WebSocket upgrades carrying an Origin header must come
// from the portal's own host.
//
// # WebSocket stream
//
// Each client receives the current snapshot on connect and then every
// time the snapshot changes, checked every SnapshotInterval. Clients are
// pinged every pingPeriod and dropped when no pong arrives in pongWait.
package server
