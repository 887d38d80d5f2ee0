// Package ui renders kiosk output in the terminal.
//
// Two kinds of output are provided:
//
//   - Reports: header and result boxes printed by the orion-kiosk
//     subcommands (networks, history, metrics, version).
//   - Display views: a text rendition of a render.Screen, used by the
//     simulator in place of the LCD.
//
// Reports follow a "print once" pattern and need no interaction. Display
// views are redrawn by the simulator's Bubble Tea program on every frame.
//
// Logging is controlled via ORION_LOG_LEVEL. When unset, zap is silent so
// styled output is not interleaved with log lines.
package ui
