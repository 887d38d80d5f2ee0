// Package sysinfo collects the device health shown on the device menu.
//
// Collector gathers load, uptime, memory, disk, network and temperature
// through gopsutil and the kernel's thermal zone. Every sub-collector may
// fail on its own; its page then reads N/A. Refresher runs the collector
// periodically and publishes the formatted pages to the shared state.
package sysinfo

import (
	"fmt"
	"strconv"
	"time"
)

const gib = 1024 * 1024 * 1024

// WiFi is the wireless link state.
type WiFi struct {
	Known     bool
	Connected bool
	SSID      string
}

// Metrics is one collection. Fields whose OK flag is false were not
// available.
type Metrics struct {
	LoadPercent float64
	LoadOK      bool

	Uptime   time.Duration
	UptimeOK bool

	MemoryPercent float64
	MemoryTotal   uint64
	MemoryOK      bool

	IP string

	Temperature   float64
	TemperatureOK bool

	DiskPercent float64
	DiskTotal   uint64
	DiskOK      bool

	WiFi WiFi
}

// Pages formats m as the device menu pages.
func (m Metrics) Pages() []string {
	na := "N/A"
	pages := make([]string, 0, 7)

	if m.LoadOK {
		pages = append(pages, fmt.Sprintf("System load: %.0f%%", m.LoadPercent))
	} else {
		pages = append(pages, "System load: "+na)
	}

	if m.UptimeOK {
		pages = append(pages, "Uptime: "+FormatUptime(m.Uptime))
	} else {
		pages = append(pages, "Uptime: "+na)
	}

	if m.MemoryOK {
		pages = append(pages, fmt.Sprintf("Memory: %.0f%% of %.1fG", m.MemoryPercent, float64(m.MemoryTotal)/gib))
	} else {
		pages = append(pages, "Memory: "+na)
	}

	ip := m.IP
	if ip == "" {
		ip = na
	}
	pages = append(pages, "IP: "+ip)

	if m.TemperatureOK {
		pages = append(pages, "CPU temp: "+strconv.FormatFloat(m.Temperature, 'f', -1, 64)+"°C")
	} else {
		pages = append(pages, "CPU temp: "+na)
	}

	if m.DiskOK {
		pages = append(pages, fmt.Sprintf("Disk: %.0f%% of %.0fG", m.DiskPercent, float64(m.DiskTotal)/gib))
	} else {
		pages = append(pages, "Disk: "+na)
	}

	switch {
	case !m.WiFi.Known:
		pages = append(pages, "WiFi: Unknown")
	case m.WiFi.Connected:
		pages = append(pages, "WiFi: Connected: "+m.WiFi.SSID)
	default:
		pages = append(pages, "WiFi: Disconnected")
	}

	return pages
}

// FormatUptime renders d as "DD days HH:MM".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	days := total / (24 * 60)
	hours := total / 60 % 24
	mins := total % 60
	return fmt.Sprintf("%02d days %02d:%02d", days, hours, mins)
}
