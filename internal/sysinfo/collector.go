package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/muurk/orion-kiosk/internal/config"
)

// SSIDFunc reports the active wireless network, "" when disconnected.
type SSIDFunc func(ctx context.Context) (string, error)

// Collector gathers device metrics.
type Collector struct {
	thermalPath string
	diskPath    string
	ssid        SSIDFunc
}

// NewCollector creates a collector. ssid may be nil, in which case the
// WiFi page reads Unknown.
func NewCollector(cfg config.Metrics, ssid SSIDFunc) *Collector {
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}
	return &Collector{
		thermalPath: cfg.ThermalPath,
		diskPath:    cfg.DiskPath,
		ssid:        ssid,
	}
}

// Collect gathers all metrics. Failed sub-collectors leave their fields
// unset and are reported in the joined error; m is always usable.
func (c *Collector) Collect(ctx context.Context) (m Metrics, err error) {
	if err := ctx.Err(); err != nil {
		return m, err
	}

	var errs []error
	collect := func(name string, fn func(context.Context, *Metrics) error) {
		if err := fn(ctx, &m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	collect("load", c.collectLoad)
	collect("uptime", c.collectUptime)
	collect("memory", c.collectMemory)
	collect("ip", c.collectIP)
	collect("temperature", c.collectTemperature)
	collect("disk", c.collectDisk)
	collect("wifi", c.collectWiFi)

	return m, errors.Join(errs...)
}

// collectLoad reports the 1-minute load average as a share of the CPUs.
func (c *Collector) collectLoad(ctx context.Context, m *Metrics) error {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return err
	}
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return err
	}
	if cpus <= 0 {
		return fmt.Errorf("no CPUs reported")
	}
	m.LoadPercent = avg.Load1 / float64(cpus) * 100
	m.LoadOK = true
	return nil
}

func (c *Collector) collectUptime(ctx context.Context, m *Metrics) error {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return err
	}
	m.Uptime = time.Duration(secs) * time.Second
	m.UptimeOK = true
	return nil
}

func (c *Collector) collectMemory(ctx context.Context, m *Metrics) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	m.MemoryPercent = vm.UsedPercent
	m.MemoryTotal = vm.Total
	m.MemoryOK = true
	return nil
}

func (c *Collector) collectDisk(ctx context.Context, m *Metrics) error {
	usage, err := disk.UsageWithContext(ctx, c.diskPath)
	if err != nil {
		return err
	}
	m.DiskPercent = usage.UsedPercent
	m.DiskTotal = usage.Total
	m.DiskOK = true
	return nil
}

// collectIP picks the first IPv4 address of an interface that is up and
// not a loopback.
func (c *Collector) collectIP(ctx context.Context, m *Metrics) error {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			if ip, ok := ipv4(a.Addr); ok {
				m.IP = ip
				return nil
			}
		}
	}
	return fmt.Errorf("no IPv4 address")
}

func ipv4(addr string) (string, bool) {
	if p, err := netip.ParsePrefix(addr); err == nil {
		addr = p.Addr().String()
	}
	a, err := netip.ParseAddr(addr)
	if err != nil || !a.Is4() || a.IsLoopback() || a.IsLinkLocalUnicast() {
		return "", false
	}
	return a.String(), true
}

// collectTemperature reads the thermal zone in millidegrees, falling back
// to the hwmon sensors.
func (c *Collector) collectTemperature(ctx context.Context, m *Metrics) error {
	if c.thermalPath != "" {
		if t, err := ReadThermal(c.thermalPath); err == nil {
			m.Temperature = t
			m.TemperatureOK = true
			return nil
		}
	}

	temps, err := sensors.TemperaturesWithContext(ctx)
	for _, t := range temps {
		if t.Temperature > 0 {
			m.Temperature = t.Temperature
			m.TemperatureOK = true
			return nil
		}
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("no temperature sensor")
}

// ReadThermal reads a sysfs thermal zone file holding millidegrees Celsius.
func ReadThermal(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return float64(milli) / 1000, nil
}

func (c *Collector) collectWiFi(ctx context.Context, m *Metrics) error {
	if c.ssid == nil {
		return nil
	}
	ssid, err := c.ssid(ctx)
	if err != nil {
		return err
	}
	m.WiFi = WiFi{Known: true, Connected: ssid != "", SSID: ssid}
	return nil
}
