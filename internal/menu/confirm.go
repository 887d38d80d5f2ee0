package menu

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/state"
)

type shutdownConfirm struct{ *base }

func (h *shutdownConfirm) Handle(ctx context.Context, g gesture.Code) (state.Menu, bool) {
	switch g {
	case gesture.LongPress:
		return state.MenuMain, true
	case gesture.Tap:
		no, yes := render.ConfirmButtons(render.ShutdownButtonsY)
		switch {
		case h.tapped(no):
			return state.MenuMain, true
		case h.tapped(yes):
			return h.shutdown(ctx)
		}
	}
	return 0, false
}

func (h *shutdownConfirm) shutdown(ctx context.Context) (state.Menu, bool) {
	logging.Info("Shutdown confirmed")
	h.announce("Shutting down...")

	if h.Shutdown == nil {
		return state.MenuMain, true
	}
	if err := h.Shutdown.Shutdown(ctx); err != nil {
		logging.Error("Shutdown failed", zap.Error(err))
		h.announce("Shutdown failed")
		return state.MenuMain, true
	}
	// The system is going down; stay on the message.
	return 0, false
}

type networkConfirm struct{ *base }

func (h *networkConfirm) Handle(ctx context.Context, g gesture.Code) (state.Menu, bool) {
	switch g {
	case gesture.LongPress:
		h.backToList()
		return state.MenuWiFi, true
	case gesture.Tap:
		no, yes := render.ConfirmButtons(render.NetworkButtonsY)
		switch {
		case h.tapped(no):
			h.backToList()
			return state.MenuWiFi, true
		case h.tapped(yes):
			h.connect(ctx)
			return state.MenuWiFi, true
		}
	}
	return 0, false
}

func (h *networkConfirm) backToList() {
	h.Store.Update(func(m *state.Model) {
		m.NetworkToConnect = ""
		m.InQRMode = false
		m.InSavedNetworks = true
	})
}

func (h *networkConfirm) connect(ctx context.Context) {
	name := h.Store.Snapshot().NetworkToConnect

	var err error
	if h.Networks == nil || name == "" {
		err = errNoNetwork
	} else {
		err = h.Networks.Connect(ctx, name)
	}

	if err != nil {
		logging.Warn("Connecting to saved network failed", zap.String("ssid", name), zap.Error(err))
		h.announce(failure("Failed", err))
	} else {
		logging.Info("Connected to saved network", zap.String("ssid", name))
		h.announce("Connected")
	}

	h.Store.Update(func(m *state.Model) { m.ClearSubModes() })
}
