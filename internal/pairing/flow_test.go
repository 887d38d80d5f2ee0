package pairing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/muurk/orion-kiosk/internal/config"
)

// fakeWiFi simulates a radio. Joining a network makes it the active one.
type fakeWiFi struct {
	iface        []bool // successive InterfaceAvailable answers; last repeats
	active       string
	visible      []string
	joinErr      map[string]error
	activeErr    error
	dropAfter    int // active reads before the setup network drops; 0 never
	reloads      int
	joins        []string
	removed      []string
	activeReads  int
	disconnected string
}

func (w *fakeWiFi) InterfaceAvailable(context.Context) (bool, error) {
	if len(w.iface) == 0 {
		return true, nil
	}
	ok := w.iface[0]
	if len(w.iface) > 1 {
		w.iface = w.iface[1:]
	}
	return ok, nil
}

func (w *fakeWiFi) ReloadDriver(context.Context, string) error {
	w.reloads++
	return nil
}

func (w *fakeWiFi) ActiveSSID(context.Context) (string, error) {
	w.activeReads++
	if w.activeErr != nil {
		return "", w.activeErr
	}
	if w.dropAfter > 0 && w.activeReads > w.dropAfter {
		return "", nil
	}
	return w.active, nil
}

func (w *fakeWiFi) Invalidate()                  {}
func (w *fakeWiFi) Rescan(context.Context) error { return nil }

func (w *fakeWiFi) VisibleSSIDs(context.Context) ([]string, error) {
	return w.visible, nil
}

func (w *fakeWiFi) Disconnect(_ context.Context, iface string) error {
	w.disconnected = iface
	w.active = ""
	return nil
}

func (w *fakeWiFi) Join(_ context.Context, ssid, password string) error {
	w.joins = append(w.joins, ssid+"/"+password)
	if err := w.joinErr[ssid]; err != nil {
		return err
	}
	w.active = ssid
	return nil
}

func (w *fakeWiFi) Remove(_ context.Context, name string) error {
	w.removed = append(w.removed, name)
	return nil
}

// scriptedCreds returns its responses in order, repeating the last.
type scriptedCreds struct {
	responses []credsResponse
	calls     int
}

type credsResponse struct {
	creds *Credentials
	err   error
}

func (s *scriptedCreds) FetchCredentials(context.Context) (*Credentials, error) {
	i := min(s.calls, len(s.responses)-1)
	s.calls++
	return s.responses[i].creds, s.responses[i].err
}

func pairingConfig() config.Pairing {
	cfg := config.Default().Pairing
	cfg.MaxPolls = 5
	return cfg
}

func newTestFlow(w *fakeWiFi, creds *scriptedCreds) (*Flow, *[]string) {
	f := NewFlow(w, creds, pairingConfig())
	f.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	var progress []string
	return f, &progress
}

func run(t *testing.T, f *Flow, progress *[]string) (string, error) {
	t.Helper()
	return f.Pair(context.Background(), func(msg string) {
		*progress = append(*progress, msg)
	})
}

var home = &Credentials{SSID: "Home", Password: "secret", Validated: true}

func TestPairHappyPath(t *testing.T) {
	w := &fakeWiFi{active: "Office", visible: []string{"Office", "OrionSetup"}}
	creds := &scriptedCreds{responses: []credsResponse{
		{err: NewHTTPError(404)},
		{creds: &Credentials{SSID: "Home", Validated: false}},
		{creds: home},
	}}
	f, progress := newTestFlow(w, creds)

	msg, err := run(t, f, progress)
	if err != nil || msg != MsgComplete {
		t.Fatalf("Pair() = %q, %v; want %q", msg, err, MsgComplete)
	}

	want := []string{
		"Checking connection...",
		"Scanning networks...",
		"Connecting to\nOrionSetup...",
		"Connected to\nOrionSetup!",
		"Received:\nHome\n\nConnecting...",
		"Connected to\nHome!",
	}
	if strings.Join(*progress, "|") != strings.Join(want, "|") {
		t.Errorf("progress = %q\nwant %q", *progress, want)
	}
	if w.disconnected != "wlan0" {
		t.Errorf("disconnected %q, want wlan0", w.disconnected)
	}
	if got := strings.Join(w.joins, ","); got != "OrionSetup/Orion2025,Home/secret" {
		t.Errorf("joins = %s", got)
	}
	if len(w.removed) != 1 || w.removed[0] != "Home" {
		t.Errorf("removed = %q, want stale Home profile", w.removed)
	}
	if creds.calls != 3 {
		t.Errorf("credential polls = %d, want 3", creds.calls)
	}
}

func TestPairAlreadyOnSetupNetwork(t *testing.T) {
	w := &fakeWiFi{active: "OrionSetup"}
	f, progress := newTestFlow(w, &scriptedCreds{responses: []credsResponse{{creds: home}}})

	msg, err := run(t, f, progress)
	if err != nil || msg != MsgComplete {
		t.Fatalf("Pair() = %q, %v", msg, err)
	}
	for _, p := range *progress {
		if p == "Scanning networks..." {
			t.Error("scanned although already on the setup network")
		}
	}
}

func TestPairFailures(t *testing.T) {
	timeout := fmt.Errorf("nmcli: %w", context.DeadlineExceeded)

	tests := []struct {
		name    string
		wifi    *fakeWiFi
		creds   []credsResponse
		wantMsg string
		wantErr error
	}{
		{
			name:    "no interface after reload",
			wifi:    &fakeWiFi{iface: []bool{false, false}},
			wantMsg: MsgNoInterface,
			wantErr: ErrNoInterface,
		},
		{
			name:    "setup network not in range",
			wifi:    &fakeWiFi{visible: []string{"Neighbour"}},
			wantMsg: MsgNotFound,
			wantErr: ErrSetupNotFound,
		},
		{
			name:    "setup join fails",
			wifi:    &fakeWiFi{visible: []string{"OrionSetup"}, joinErr: map[string]error{"OrionSetup": errors.New("secrets required")}},
			wantMsg: MsgConnectFailed,
		},
		{
			name:    "setup join times out",
			wifi:    &fakeWiFi{visible: []string{"OrionSetup"}, joinErr: map[string]error{"OrionSetup": timeout}},
			wantMsg: MsgTimeout,
			wantErr: context.DeadlineExceeded,
		},
		{
			name:    "setup network drops while polling",
			wifi:    &fakeWiFi{active: "OrionSetup", dropAfter: 2},
			creds:   []credsResponse{{err: NewHTTPError(404)}},
			wantMsg: "Lost connection to OrionSetup",
			wantErr: ErrSetupLost,
		},
		{
			name:    "credentials never arrive",
			wifi:    &fakeWiFi{active: "OrionSetup"},
			creds:   []credsResponse{{err: &Error{Type: ErrTypeConnectionRefused, Retryable: true}}},
			wantMsg: MsgNoCredentials,
			wantErr: ErrNoCredentials,
		},
		{
			name:    "home network rejects password",
			wifi:    &fakeWiFi{active: "OrionSetup", joinErr: map[string]error{"Home": errors.New("exit status 4")}},
			creds:   []credsResponse{{creds: home}},
			wantMsg: MsgConnectFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := tt.creds
			if creds == nil {
				creds = []credsResponse{{creds: home}}
			}
			f, progress := newTestFlow(tt.wifi, &scriptedCreds{responses: creds})

			msg, err := run(t, f, progress)
			if msg != tt.wantMsg {
				t.Errorf("Pair() message = %q, want %q", msg, tt.wantMsg)
			}
			if err == nil {
				t.Fatal("Pair() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Pair() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPairReloadsDriver(t *testing.T) {
	w := &fakeWiFi{iface: []bool{false, true}, active: "OrionSetup"}
	f, progress := newTestFlow(w, &scriptedCreds{responses: []credsResponse{{creds: home}}})

	if msg, err := run(t, f, progress); err != nil {
		t.Fatalf("Pair() = %q, %v", msg, err)
	}
	if w.reloads != 1 {
		t.Errorf("reloads = %d, want 1", w.reloads)
	}
	if (*progress)[0] != "Loading WiFi\ninterface..." {
		t.Errorf("first progress = %q", (*progress)[0])
	}
}

func TestPairRetriesSetupJoin(t *testing.T) {
	w := &fakeWiFi{visible: []string{"OrionSetup"}, joinErr: map[string]error{"OrionSetup": errors.New("busy")}}
	f, progress := newTestFlow(w, &scriptedCreds{responses: []credsResponse{{creds: home}}})

	run(t, f, progress)

	found := false
	for _, p := range *progress {
		if p == "Retrying...\n(Attempt 2/2)" {
			found = true
		}
	}
	if !found {
		t.Errorf("no retry message in %q", *progress)
	}
	if len(w.joins) != 2 {
		t.Errorf("setup joins = %d, want 2", len(w.joins))
	}
}

func TestPairFailedHomeJoinReturnsToSetup(t *testing.T) {
	w := &fakeWiFi{active: "OrionSetup", joinErr: map[string]error{"Home": errors.New("exit status 4")}}
	f, progress := newTestFlow(w, &scriptedCreds{responses: []credsResponse{{creds: home}}})

	run(t, f, progress)

	if got := strings.Join(w.joins, ","); got != "Home/secret,OrionSetup/Orion2025" {
		t.Errorf("joins = %s", got)
	}
	if w.active != "OrionSetup" {
		t.Errorf("active = %q, want OrionSetup", w.active)
	}
}

func TestPairCancelled(t *testing.T) {
	w := &fakeWiFi{active: "OrionSetup"}
	f, _ := newTestFlow(w, &scriptedCreds{responses: []credsResponse{{err: NewHTTPError(404)}}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, err := f.Pair(ctx, nil)
	if msg != MsgCancelled || !errors.Is(err, context.Canceled) {
		t.Errorf("Pair() = %q, %v; want cancelled", msg, err)
	}
}
