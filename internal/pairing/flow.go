// Package pairing joins the energy meter's setup network and waits for the
// user to hand the kiosk their home WiFi credentials.
//
// The meter runs an access point (by default "OrionSetup") with a small
// HTTP server. Once the user submits their network through the meter's
// form, the server returns {"ssid", "password", "validated": true} and the
// kiosk moves over to that network.
package pairing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/wifi"
)

// Result messages shown on the display.
const (
	MsgComplete      = "Pairing complete!"
	MsgNoInterface   = "WiFi interface not available"
	MsgNotFound      = "Energy Meter not found"
	MsgConnectFailed = "Connection failed"
	MsgTimeout       = "Connection timeout"
	MsgNoCredentials = "Timeout waiting for credentials"
	MsgUnexpected    = "Unexpected error"
	MsgCancelled     = "Pairing cancelled"
)

var (
	ErrNoInterface   = errors.New("no wifi interface")
	ErrSetupNotFound = errors.New("setup network not in range")
	ErrSetupLost     = errors.New("left the setup network")
	ErrNoCredentials = errors.New("no credentials received")
)

// WiFi is the subset of the nmcli service the flow drives.
type WiFi interface {
	InterfaceAvailable(ctx context.Context) (bool, error)
	ReloadDriver(ctx context.Context, module string) error
	ActiveSSID(ctx context.Context) (string, error)
	Invalidate()
	Rescan(ctx context.Context) error
	VisibleSSIDs(ctx context.Context) ([]string, error)
	Disconnect(ctx context.Context, iface string) error
	Join(ctx context.Context, ssid, password string) error
	Remove(ctx context.Context, name string) error
}

// CredentialSource returns the credentials the meter holds, if any.
type CredentialSource interface {
	FetchCredentials(ctx context.Context) (*Credentials, error)
}

// Flow implements the menu's pairing action.
type Flow struct {
	wifi  WiFi
	creds CredentialSource
	cfg   config.Pairing
	sleep func(context.Context, time.Duration) error
}

// NewFlow creates a flow. A nil creds polls cfg.CredentialsURL.
func NewFlow(w WiFi, creds CredentialSource, cfg config.Pairing) *Flow {
	if creds == nil {
		creds = NewClient(cfg.CredentialsURL)
	}
	return &Flow{wifi: w, creds: creds, cfg: cfg, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pair runs the whole flow. The returned message is meant for the display
// and is set on success and failure alike.
func (f *Flow) Pair(ctx context.Context, progress func(string)) (msg string, err error) {
	if progress == nil {
		progress = func(string) {}
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Pairing panicked", zap.Any("panic", r), zap.Stack("stack"))
			msg, err = MsgUnexpected, fmt.Errorf("pairing panic: %v", r)
		}
		if err != nil && ctx.Err() != nil {
			msg, err = MsgCancelled, ctx.Err()
		}
	}()

	if err := f.ensureInterface(ctx, progress); err != nil {
		return MsgNoInterface, err
	}
	if msg, err := f.joinSetup(ctx, progress); err != nil {
		return msg, err
	}
	return f.awaitCredentials(ctx, progress)
}

func (f *Flow) ensureInterface(ctx context.Context, progress func(string)) error {
	ok, err := f.wifi.InterfaceAvailable(ctx)
	if err != nil {
		return fmt.Errorf("check interface: %w", err)
	}
	if ok {
		return nil
	}

	logging.Warn("WiFi interface not found, reloading driver", zap.String("module", f.cfg.DriverModule))
	progress("Loading WiFi\ninterface...")
	if err := f.wifi.ReloadDriver(ctx, f.cfg.DriverModule); err != nil {
		return fmt.Errorf("reload driver: %w", err)
	}

	if ok, err = f.wifi.InterfaceAvailable(ctx); err != nil {
		return fmt.Errorf("check interface: %w", err)
	}
	if !ok {
		return ErrNoInterface
	}
	return nil
}

func (f *Flow) joinSetup(ctx context.Context, progress func(string)) (string, error) {
	attempts := max(f.cfg.ConnectRetries, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		last := attempt == attempts
		if attempt > 1 {
			progress(fmt.Sprintf("Retrying...\n(Attempt %d/%d)", attempt, attempts))
			if err := f.sleep(ctx, 2*time.Second); err != nil {
				return MsgCancelled, err
			}
		}

		progress("Checking connection...")
		err := f.trySetup(ctx, progress)
		if err == nil {
			return "", nil
		}
		if ctx.Err() != nil {
			return MsgCancelled, ctx.Err()
		}

		fields := []zap.Field{zap.Int("attempt", attempt), zap.Error(err)}
		switch {
		case wifi.IsTimeout(err):
			logging.Error("Network command timeout", fields...)
			if last {
				return MsgTimeout, err
			}
		case errors.Is(err, ErrSetupNotFound):
			logging.Warn("Setup network not found in scan", append(fields, zap.String("ssid", f.cfg.SetupSSID))...)
			if last {
				return MsgNotFound, err
			}
		default:
			logging.Error("Connecting to setup network failed", fields...)
			if last {
				return MsgConnectFailed, err
			}
		}
	}
	return MsgConnectFailed, ErrSetupNotFound
}

// trySetup makes one attempt at associating with the setup network.
func (f *Flow) trySetup(ctx context.Context, progress func(string)) error {
	setup := f.cfg.SetupSSID

	f.wifi.Invalidate()
	current, err := f.wifi.ActiveSSID(ctx)
	if err != nil {
		return err
	}
	if current == setup {
		return nil
	}

	progress("Scanning networks...")
	if err := f.wifi.Rescan(ctx); err != nil {
		if wifi.IsTimeout(err) {
			return err
		}
		logging.Debug("Rescan failed", zap.Error(err))
	}
	if err := f.sleep(ctx, 3*time.Second); err != nil {
		return err
	}

	visible, err := f.wifi.VisibleSSIDs(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(visible, setup) {
		return ErrSetupNotFound
	}

	progress("Connecting to\n" + setup + "...")
	if err := f.wifi.Disconnect(ctx, f.cfg.Interface); err != nil {
		if wifi.IsTimeout(err) {
			return err
		}
		logging.Debug("Disconnect failed", zap.String("interface", f.cfg.Interface), zap.Error(err))
	}
	if err := f.sleep(ctx, time.Second); err != nil {
		return err
	}

	if err := f.wifi.Join(ctx, setup, f.cfg.SetupPassword); err != nil {
		return fmt.Errorf("join %s: %w", setup, err)
	}
	progress("Connected to\n" + setup + "!")
	return f.sleep(ctx, 2*time.Second)
}

func (f *Flow) awaitCredentials(ctx context.Context, progress func(string)) (string, error) {
	setup := f.cfg.SetupSSID
	interval := f.cfg.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	polls := f.cfg.MaxPolls
	if polls <= 0 {
		polls = 200
	}

	logging.Info("Waiting for credentials", zap.String("url", f.cfg.CredentialsURL), zap.Int("max_polls", polls))
	for poll := 0; poll < polls; poll++ {
		if poll > 0 {
			if err := f.sleep(ctx, interval); err != nil {
				return MsgCancelled, err
			}
		}

		f.wifi.Invalidate()
		current, err := f.wifi.ActiveSSID(ctx)
		if err != nil {
			if poll%20 == 0 {
				logging.Debug("Still waiting for credentials", zap.Duration("elapsed", time.Duration(poll)*interval), zap.Error(err))
			}
			continue
		}
		if current != setup {
			logging.Warn("Disconnected from setup network", zap.String("current", current))
			return "Lost connection to " + setup, ErrSetupLost
		}

		creds, err := f.creds.FetchCredentials(ctx)
		if err != nil {
			if !IsRetryable(err) {
				logging.Error("Poll error", zap.Error(err))
			}
			continue
		}
		if !creds.Ready() {
			continue
		}
		return f.switchNetwork(ctx, creds, progress)
	}
	return MsgNoCredentials, ErrNoCredentials
}

func (f *Flow) switchNetwork(ctx context.Context, creds *Credentials, progress func(string)) (string, error) {
	logging.Info("Received credentials", zap.String("ssid", creds.SSID))
	progress(fmt.Sprintf("Received:\n%s\n\nConnecting...", creds.SSID))
	if err := f.sleep(ctx, time.Second); err != nil {
		return MsgCancelled, err
	}

	if err := f.wifi.Remove(ctx, creds.SSID); err != nil {
		logging.Debug("No stale profile removed", zap.String("ssid", creds.SSID), zap.Error(err))
	}
	if err := f.sleep(ctx, 500*time.Millisecond); err != nil {
		return MsgCancelled, err
	}

	if err := f.wifi.Join(ctx, creds.SSID, creds.Password); err != nil {
		logging.Error("Joining home network failed", zap.String("ssid", creds.SSID), zap.Error(err))
		if rerr := f.wifi.Join(ctx, f.cfg.SetupSSID, f.cfg.SetupPassword); rerr != nil {
			logging.Warn("Rejoining setup network failed", zap.Error(rerr))
		}
		return MsgConnectFailed, fmt.Errorf("join %s: %w", creds.SSID, err)
	}

	progress("Connected to\n" + creds.SSID + "!")
	if err := f.sleep(ctx, 2*time.Second); err != nil {
		return MsgCancelled, err
	}
	return MsgComplete, nil
}

var _ WiFi = (*wifi.Service)(nil)
