package menu

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/state"
)

// mainTargets maps render.MainItems to their menus.
var mainTargets = []state.Menu{
	state.MenuEnergy,
	state.MenuDevice,
	state.MenuWiFi,
	state.MenuConfirmShutdown,
}

type mainMenu struct{ *base }

func (h *mainMenu) Handle(_ context.Context, g gesture.Code) (state.Menu, bool) {
	switch g {
	case gesture.Up, gesture.Down:
		h.Store.Update(func(m *state.Model) {
			m.SelectedOption = state.Wrap(m.SelectedOption, direction(g), len(render.MainItems))
		})
		h.redraw()

	case gesture.Tap:
		if h.tapped(render.ThemeToggle()) {
			var theme state.Theme
			h.Store.Update(func(m *state.Model) {
				m.Theme = m.Theme.Toggle()
				theme = m.Theme
			})
			logging.Info("Theme toggled", zap.String("theme", string(theme)))
			if h.OnTheme != nil {
				h.OnTheme(theme)
			}
			h.redraw()
			return 0, false
		}

		sel := h.Store.Snapshot().SelectedOption
		return mainTargets[state.Wrap(sel, 0, len(mainTargets))], true

	case gesture.LongPress:
		return state.MenuMain, true
	}
	return 0, false
}
