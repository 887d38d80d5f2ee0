// Package simulator runs the kiosk UI in a terminal.
//
// Display stands in for the LCD: it implements render.Renderer and hands
// every frame to a Bubble Tea program. Model turns key presses into
// gestures, including taps at the theme toggle and confirmation buttons,
// and stores them in the gesture.Cell the navigation engine polls. Feed
// publishes synthetic meter readings so the energy views have data
// without a broker.
package simulator
