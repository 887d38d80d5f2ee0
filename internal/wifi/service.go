package wifi

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/logging"
)

const wirelessType = "802-11-wireless"

// Command timeouts.
const (
	quickTimeout   = 2 * time.Second
	listTimeout    = 5 * time.Second
	modifyTimeout  = 10 * time.Second
	scanTimeout    = 30 * time.Second
	connectTimeout = 60 * time.Second
)

// Service runs nmcli on behalf of the menus and the pairing flow.
type Service struct {
	run      Runner
	cacheTTL time.Duration
	now      func() time.Time
	sleep    func(time.Duration)

	mu       sync.Mutex
	cached   string
	cachedAt time.Time
}

// NewService creates a service. The active SSID is cached for cfg.SSIDCache.
func NewService(run Runner, cfg config.Pairing) *Service {
	if run == nil {
		run = ExecRunner{}
	}
	return &Service{
		run:      run,
		cacheTTL: cfg.SSIDCache,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

func (s *Service) nmcli(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.run.Run(ctx, "nmcli", args...)
}

func (s *Service) sudo(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.run.Run(ctx, "sudo", args...)
}

// ActiveSSID returns the network the radio is associated with, "" when
// none. Results are cached; on failure the cached value is returned along
// with the error.
func (s *Service) ActiveSSID(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.cachedAt.IsZero() && s.now().Sub(s.cachedAt) < s.cacheTTL {
		ssid := s.cached
		s.mu.Unlock()
		return ssid, nil
	}
	s.mu.Unlock()

	out, err := s.nmcli(ctx, quickTimeout, "-t", "-f", "active,ssid", "dev", "wifi")
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cached, err
	}

	ssid := parseActive(string(out))

	s.mu.Lock()
	s.cached = ssid
	s.cachedAt = s.now()
	s.mu.Unlock()
	return ssid, nil
}

// CurrentSSID is ActiveSSID with errors logged.
func (s *Service) CurrentSSID(ctx context.Context) string {
	ssid, err := s.ActiveSSID(ctx)
	if err != nil {
		logging.Debug("Error getting SSID", zap.Error(err))
	}
	return ssid
}

// Invalidate drops the cached SSID.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = ""
	s.cachedAt = time.Time{}
}

// SavedNetworks lists the saved connection profiles of type wireless.
func (s *Service) SavedNetworks(ctx context.Context) ([]string, error) {
	out, err := s.nmcli(ctx, listTimeout, "-t", "-f", "NAME", "connection", "show")
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	var networks []string
	for _, name := range lines(string(out)) {
		name = unescape(name)
		typ, err := s.nmcli(ctx, quickTimeout, "-t", "-f", "connection.type", "connection", "show", name)
		if err != nil {
			logging.Debug("Skipping connection", zap.String("name", name), zap.Error(err))
			continue
		}
		if strings.Contains(string(typ), wirelessType) {
			networks = append(networks, name)
		}
	}
	return networks, nil
}

// Connect activates a saved profile.
func (s *Service) Connect(ctx context.Context, name string) error {
	defer s.Invalidate()
	if _, err := s.sudo(ctx, scanTimeout, "nmcli", "connection", "up", name); err != nil {
		return fmt.Errorf("connect %s: %w", name, err)
	}
	logging.Info("Connected to saved network", zap.String("ssid", name))
	return nil
}

// Remove deletes a saved profile.
func (s *Service) Remove(ctx context.Context, name string) error {
	defer s.Invalidate()
	if _, err := s.sudo(ctx, modifyTimeout, "nmcli", "connection", "delete", name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// InterfaceAvailable reports whether NetworkManager lists a wifi device.
func (s *Service) InterfaceAvailable(ctx context.Context) (bool, error) {
	out, err := s.nmcli(ctx, listTimeout, "device", "status")
	if err != nil {
		return false, err
	}
	return strings.Contains(string(out), "wifi"), nil
}

// ReloadDriver unloads and reloads the wireless kernel module and
// restarts NetworkManager.
func (s *Service) ReloadDriver(ctx context.Context, module string) error {
	steps := [][]string{
		{"modprobe", "-r", module},
		{"modprobe", module},
		{"systemctl", "restart", "NetworkManager"},
	}
	pauses := []time.Duration{2 * time.Second, 2 * time.Second, 3 * time.Second}

	for i, args := range steps {
		if module == "" && args[0] == "modprobe" {
			continue
		}
		if _, err := s.sudo(ctx, modifyTimeout, args...); err != nil {
			logging.Warn("WiFi driver reload step failed", zap.Strings("command", args), zap.Error(err))
		}
		s.sleep(pauses[i])
	}
	return ctx.Err()
}

// Rescan asks the radio for a fresh scan.
func (s *Service) Rescan(ctx context.Context) error {
	_, err := s.sudo(ctx, scanTimeout, "nmcli", "device", "wifi", "rescan")
	return err
}

// VisibleSSIDs lists the networks in range.
func (s *Service) VisibleSSIDs(ctx context.Context) ([]string, error) {
	out, err := s.nmcli(ctx, listTimeout, "-t", "-f", "ssid", "dev", "wifi")
	if err != nil {
		return nil, err
	}
	var ssids []string
	for _, l := range lines(string(out)) {
		if ssid := unescape(l); !slices.Contains(ssids, ssid) {
			ssids = append(ssids, ssid)
		}
	}
	return ssids, nil
}

// Disconnect drops the current association of iface.
func (s *Service) Disconnect(ctx context.Context, iface string) error {
	defer s.Invalidate()
	_, err := s.sudo(ctx, modifyTimeout, "nmcli", "device", "disconnect", iface)
	return err
}

// Join connects to ssid, creating a profile.
func (s *Service) Join(ctx context.Context, ssid, password string) error {
	defer s.Invalidate()
	args := []string{"nmcli", "dev", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	_, err := s.sudo(ctx, connectTimeout, args...)
	return err
}

// parseActive returns the SSID of the first "yes:" line of
// `nmcli -t -f active,ssid dev wifi`.
func parseActive(out string) string {
	for _, l := range lines(out) {
		if ssid, ok := strings.CutPrefix(l, "yes:"); ok {
			return unescape(strings.TrimSpace(ssid))
		}
	}
	return ""
}

func lines(out string) []string {
	var res []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return res
}

// unescape undoes nmcli's terse-mode escaping of ':' and '\'.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
