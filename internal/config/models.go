package config

import "time"

// Config is the kiosk configuration file. Zero-valued sections are filled
// from Default when loaded.
type Config struct {
	Version  int      `yaml:"version"`
	Broker   Broker   `yaml:"broker"`
	Topics   Topics   `yaml:"topics"`
	UI       UI       `yaml:"ui"`
	Metrics  Metrics  `yaml:"metrics"`
	Pairing  Pairing  `yaml:"pairing"`
	Storage  Storage  `yaml:"storage"`
	Hardware Hardware `yaml:"hardware"`
	Portal   Portal   `yaml:"portal"`
}

// Broker selects and configures the pub/sub transport.
type Broker struct {
	Transport string        `yaml:"transport"` // "mqtt" or "nats"
	Host      string        `yaml:"host"`      // "auto" resolves the broker over mDNS
	Port      int           `yaml:"port"`
	ClientID  string        `yaml:"client_id"`
	Username  string        `yaml:"username,omitempty"`
	Password  string        `yaml:"password,omitempty"`
	KeepAlive time.Duration `yaml:"keep_alive"`
	Timeout   time.Duration `yaml:"timeout"`
	// Heartbeat is the interval of the kiosk status publication; zero disables it.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Topics names every subject the kiosk subscribes or publishes to.
type Topics struct {
	Energy          string `yaml:"energy"`
	PairingStatus   string `yaml:"pairing_status"`
	WiFiCredentials string `yaml:"wifi_credentials"`
	Confirm         string `yaml:"confirm"`
	Scan            string `yaml:"scan"`
	Status          string `yaml:"status"`
}

// UI holds the navigation timings and view options.
type UI struct {
	StandbyTimeout  time.Duration `yaml:"standby_timeout"`
	GestureDebounce time.Duration `yaml:"gesture_debounce"`
	RenderThrottle  time.Duration `yaml:"render_throttle"`
	ScrollSpeed     time.Duration `yaml:"scroll_speed"`
	ActivePoll      time.Duration `yaml:"active_poll"`
	StandbyPoll     time.Duration `yaml:"standby_poll"`
	Splash          time.Duration `yaml:"splash"`
	EnergyViews     []string      `yaml:"energy_views"`
	Theme           string        `yaml:"theme"`
}

// Metrics configures the device health refresher.
type Metrics struct {
	Interval    time.Duration `yaml:"interval"`
	ThermalPath string        `yaml:"thermal_path"`
	DiskPath    string        `yaml:"disk_path"`
}

// Pairing configures the energy-meter pairing flow.
type Pairing struct {
	// Mode is "ap" to join the meter's setup network or "portal" to show
	// the configuration portal QR code instead.
	Mode           string        `yaml:"mode"`
	SetupSSID      string        `yaml:"setup_ssid"`
	SetupPassword  string        `yaml:"setup_password"`
	CredentialsURL string        `yaml:"credentials_url"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxPolls       int           `yaml:"max_polls"`
	ConnectRetries int           `yaml:"connect_retries"`
	Interface      string        `yaml:"interface"`
	DriverModule   string        `yaml:"driver_module,omitempty"`
	SSIDCache      time.Duration `yaml:"ssid_cache"`
}

// Storage locates the data log, history database and scan results.
type Storage struct {
	LogFile  string `yaml:"log_file"`
	DBPath   string `yaml:"db_path"`
	ScanFile string `yaml:"scan_file"`
}

// Hardware maps the LCD and touch controller onto the board.
type Hardware struct {
	SPIPort       string `yaml:"spi_port"`
	SPISpeed      int64  `yaml:"spi_speed_hz"`
	I2CBus        string `yaml:"i2c_bus"`
	TouchAddr     uint16 `yaml:"touch_addr"`
	ResetPin      string `yaml:"reset_pin"`
	DCPin         string `yaml:"dc_pin"`
	BacklightPin  string `yaml:"backlight_pin"`
	TouchIntPin   string `yaml:"touch_int_pin"`
	TouchResetPin string `yaml:"touch_reset_pin"`
}

// Portal configures the local status and setup web service.
type Portal struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	URL       string `yaml:"url"`
	Advertise bool   `yaml:"advertise"`
	Instance  string `yaml:"instance"`

	// AllowGestures enables POST /api/gesture. Off by default: an injected
	// gesture can reach shutdown and network removal.
	AllowGestures bool `yaml:"allow_gestures"`
}

// Preferences are user choices made on the device itself and persisted
// across restarts.
type Preferences struct {
	Theme string `yaml:"theme"`
}

// Default returns the configuration the kiosk ships with.
func Default() *Config {
	return &Config{
		Version: 1,
		Broker: Broker{
			Transport: "mqtt",
			Host:      "localhost",
			Port:      1883,
			ClientID:  "Orion_Publisher",
			Username:  "orion_device",
			Password:  "123456789",
			KeepAlive: 60 * time.Second,
			Timeout:   10 * time.Second,
			Heartbeat: 30 * time.Second,
		},
		Topics: Topics{
			Energy:          "energy/metrics",
			PairingStatus:   "pairing/status",
			WiFiCredentials: "orion/wifi_credentials",
			Confirm:         "orion/confirm",
			Scan:            "orion/scan",
			Status:          "orion/kiosk/status",
		},
		UI: UI{
			StandbyTimeout:  60 * time.Second,
			GestureDebounce: 250 * time.Millisecond,
			RenderThrottle:  20 * time.Millisecond,
			ScrollSpeed:     50 * time.Millisecond,
			ActivePoll:      40 * time.Millisecond,
			StandbyPoll:     80 * time.Millisecond,
			Splash:          5 * time.Second,
			EnergyViews:     []string{"text", "bar", "line"},
			Theme:           "dark",
		},
		Metrics: Metrics{
			Interval:    5 * time.Second,
			ThermalPath: "/sys/class/thermal/thermal_zone0/temp",
			DiskPath:    "/",
		},
		Pairing: Pairing{
			Mode:           "ap",
			SetupSSID:      "OrionSetup",
			SetupPassword:  "Orion2025",
			CredentialsURL: "http://192.168.4.1:8080/credentials",
			PollInterval:   3 * time.Second,
			MaxPolls:       200,
			ConnectRetries: 2,
			Interface:      "wlan0",
			DriverModule:   "rtw89_8852be",
			SSIDCache:      60 * time.Second,
		},
		Storage: Storage{
			LogFile:  "logs/mqtt_data_log.txt",
			DBPath:   "logs/energy_data.db",
			ScanFile: "scanned_networks.json",
		},
		Hardware: Hardware{
			SPIPort:       "/dev/spidev0.0",
			SPISpeed:      40_000_000,
			I2CBus:        "1",
			TouchAddr:     0x15,
			ResetPin:      "GPIO6",
			DCPin:         "GPIO25",
			BacklightPin:  "GPIO22",
			TouchIntPin:   "GPIO9",
			TouchResetPin: "GPIO17",
		},
		Portal: Portal{
			Enabled:   true,
			Addr:      ":3000",
			URL:       "http://orion.local:3000",
			Advertise: true,
			Instance:  "orion",
		},
	}
}
