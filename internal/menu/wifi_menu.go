package menu

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/state"
)

// Indexes into render.WiFiOptions.
const (
	wifiPair = iota
	wifiChange
	wifiSaved
	wifiRemove
)

type wifiMenu struct{ *base }

func (h *wifiMenu) Handle(ctx context.Context, g gesture.Code) (state.Menu, bool) {
	snap := h.Store.Snapshot()
	switch {
	case snap.InSavedNetworks:
		return h.handleSaved(g, len(snap.SavedNetworks))
	case snap.InQRMode:
		return h.handleQR(g)
	}

	switch g {
	case gesture.Up, gesture.Down:
		h.Store.Update(func(m *state.Model) {
			m.WiFiSelected = state.Wrap(m.WiFiSelected, direction(g), len(render.WiFiOptions))
		})
		h.redraw()
	case gesture.Tap:
		h.selectOption(ctx, snap.WiFiSelected)
	case gesture.Left, gesture.LongPress:
		return state.MenuMain, true
	}
	return 0, false
}

func (h *wifiMenu) handleSaved(g gesture.Code, n int) (state.Menu, bool) {
	switch g {
	case gesture.Up, gesture.Down:
		if n == 0 {
			return 0, false
		}
		h.Store.Update(func(m *state.Model) {
			m.SavedNetworksSelected = state.Wrap(m.SavedNetworksSelected, direction(g), len(m.SavedNetworks))
		})
		h.redraw()

	case gesture.Tap:
		if n == 0 {
			return 0, false
		}
		h.Store.Update(func(m *state.Model) {
			m.NetworkToConnect = m.SavedNetworks[state.Wrap(m.SavedNetworksSelected, 0, len(m.SavedNetworks))]
			// the list is kept so cancelling the confirmation returns to the same row
			m.InSavedNetworks = false
		})
		return state.MenuConfirmNetwork, true

	case gesture.Left, gesture.LongPress:
		h.Store.Update(func(m *state.Model) { m.ExitSavedNetworks() })
		return state.MenuWiFi, true
	}
	return 0, false
}

func (h *wifiMenu) handleQR(g gesture.Code) (state.Menu, bool) {
	if g == gesture.Left || g == gesture.LongPress {
		h.Store.Update(func(m *state.Model) { m.InQRMode = false })
		return state.MenuWiFi, true
	}
	return 0, false
}

func (h *wifiMenu) selectOption(ctx context.Context, option int) {
	switch option {
	case wifiPair:
		h.pair(ctx, "Pairing", 2*time.Second)

	case wifiChange:
		if h.PairingMode == PairingPortal {
			h.Store.Update(func(m *state.Model) { m.EnterQRMode() })
			h.redraw()
			return
		}
		h.message("Triggering\nAP mode...")
		h.pair(ctx, "Switching", 8*time.Second)

	case wifiSaved:
		var list []string
		if h.Networks != nil {
			var err error
			if list, err = h.Networks.SavedNetworks(ctx); err != nil {
				logging.Warn("Listing saved networks failed", zap.Error(err))
			}
		}
		h.Store.Update(func(m *state.Model) { m.EnterSavedNetworks(list) })
		h.redraw()

	case wifiRemove:
		h.remove(ctx)
	}
}

func (h *wifiMenu) pair(ctx context.Context, label string, warmup time.Duration) {
	if h.Pairer == nil {
		h.announce("Pairing not\navailable")
		h.redraw()
		return
	}

	h.loading(label, warmup)
	msg, err := h.Pairer.Pair(ctx, h.message)
	if err != nil {
		logging.Warn("Pairing failed", zap.String("reason", msg), zap.Error(err))
	} else {
		logging.Info("Pairing complete", zap.String("message", msg))
	}
	h.announce(msg)
	h.redraw()
}

func (h *wifiMenu) remove(ctx context.Context) {
	current := ""
	if h.Networks != nil {
		current = h.Networks.CurrentSSID(ctx)
	}
	if current == "" {
		h.announce("No active\nconnection")
		h.redraw()
		return
	}

	h.message("Removing\n" + current + "...")
	if err := h.Networks.Remove(ctx, current); err != nil {
		logging.Warn("Removing WiFi failed", zap.String("ssid", current), zap.Error(err))
		h.announce(failure("Failed to\nremove", err))
	} else {
		logging.Info("WiFi removed", zap.String("ssid", current))
		h.announce("WiFi removed")
	}
	h.redraw()
}
