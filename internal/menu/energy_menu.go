package menu

import (
	"context"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/state"
)

type energyMenu struct{ *base }

func (h *energyMenu) Handle(_ context.Context, g gesture.Code) (state.Menu, bool) {
	if g == gesture.Left || g == gesture.LongPress {
		return state.MenuMain, true
	}
	if len(h.Store.Snapshot().EnergyMetrics) == 0 {
		return 0, false
	}

	switch g {
	case gesture.Up, gesture.Down:
		h.Store.Update(func(m *state.Model) {
			m.CurrentPage = state.Wrap(m.CurrentPage, direction(g), len(m.EnergyMetrics))
		})
		h.redraw()
	case gesture.Tap:
		views := len(h.Layout.EnergyViews)
		h.Store.Update(func(m *state.Model) {
			m.EnergyView = state.Wrap(m.EnergyView, 1, views)
		})
		h.redraw()
	}
	return 0, false
}

type deviceMenu struct{ *base }

func (h *deviceMenu) Handle(_ context.Context, g gesture.Code) (state.Menu, bool) {
	switch g {
	case gesture.Left, gesture.LongPress:
		h.Store.Update(func(m *state.Model) { m.CurrentPage = 0 })
		return state.MenuMain, true
	case gesture.Up, gesture.Down:
		moved := false
		h.Store.Update(func(m *state.Model) {
			if len(m.DevicePages) == 0 {
				return
			}
			m.CurrentPage = state.Wrap(m.CurrentPage, direction(g), len(m.DevicePages))
			moved = true
		})
		if moved {
			h.redraw()
		}
	}
	return 0, false
}
