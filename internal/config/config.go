package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultSampleIntervalSec = 1.0
	DefaultWindowSize        = 60
	// DefaultValorRate reproduces the historical CONVERSION_FACTOR of
	// 1,000,000: valor = joules * rate. The Valor formula itself is a
	// placeholder linear transform pending a network-side scoring
	// definition; only the rate constant is tunable.
	DefaultValorRate = 1e-6
	DefaultUplinkURL = "http://your-server-ip/api/uplink"

	DefaultCoreListen  = ":5000"
	DefaultCoreDataDir = "qlx-data"
	DefaultCoreLogFile = "qlx_core.log"
	DefaultCorePIDFile = "qlx_core.pid"
)

// Config holds the monitor settings plus an optional core-server section.
// The file format and key names are fixed: config.json with upper-case
// keys, as shipped to existing nodes.
type Config struct {
	UplinkURL         string      `json:"UPLINK_URL"`
	NodeID            string      `json:"NODE_ID"`
	SampleIntervalSec float64     `json:"SAMPLE_INTERVAL"`
	WindowSize        int         `json:"WINDOW_SIZE"`
	ValorRate         float64     `json:"VALOR_RATE"`
	TelemetryCSV      string      `json:"TELEMETRY_CSV,omitempty"`
	BrokerURL         string      `json:"BROKER_URL,omitempty"`
	Core              *CoreConfig `json:"CORE,omitempty"`
}

// CoreConfig is used by the core/server process.
type CoreConfig struct {
	Listen     string `json:"LISTEN"`
	DataDir    string `json:"DATA_DIR"`
	LogFile    string `json:"LOG_FILE"`
	PIDFile    string `json:"PID_FILE"`
	RedisAddr  string `json:"REDIS_ADDR,omitempty"`
	HistoryDSN string `json:"HISTORY_DSN,omitempty"`
}

// Load reads config.json from path. A missing file is not an error: the
// built-in defaults apply. A malformed file is also non-fatal; it is
// logged and ignored so a typo in config.json never takes a node down.
func Load(path string) Config {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			log.Printf("config: failed to parse %s, using defaults: %v", path, jsonErr)
			cfg = Config{}
		}
	} else if !os.IsNotExist(err) {
		log.Printf("config: failed to read %s, using defaults: %v", path, err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return cfg
}

// Save writes the config as JSON. Used by `qlx init` style tooling and tests.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.UplinkURL == "" {
		cfg.UplinkURL = DefaultUplinkURL
	}
	if cfg.NodeID == "" {
		cfg.NodeID = NewNodeID()
	}
	if cfg.SampleIntervalSec <= 0 {
		cfg.SampleIntervalSec = DefaultSampleIntervalSec
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.ValorRate <= 0 {
		cfg.ValorRate = DefaultValorRate
	}

	if cfg.Core != nil {
		if cfg.Core.Listen == "" {
			cfg.Core.Listen = DefaultCoreListen
		}
		if cfg.Core.DataDir == "" {
			cfg.Core.DataDir = DefaultCoreDataDir
		}
		if cfg.Core.LogFile == "" {
			cfg.Core.LogFile = DefaultCoreLogFile
		}
		if cfg.Core.PIDFile == "" {
			cfg.Core.PIDFile = DefaultCorePIDFile
		}
	}
}

// ApplyEnv overrides file values from QLX_* environment variables.
// A .env file, when present, is loaded by the CLI before this runs.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("QLX_UPLINK_URL"); v != "" {
		cfg.UplinkURL = v
	}
	if v := os.Getenv("QLX_NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("QLX_SAMPLE_INTERVAL"); v != "" {
		if sec, err := strconv.ParseFloat(v, 64); err == nil && sec > 0 {
			cfg.SampleIntervalSec = sec
		}
	}
	if v := os.Getenv("QLX_BROKER_URL"); v != "" {
		cfg.BrokerURL = v
	}
	if v := os.Getenv("QLX_REDIS_ADDR"); v != "" {
		ensureCore(cfg).RedisAddr = v
	}
	if v := os.Getenv("QLX_HISTORY_DSN"); v != "" {
		ensureCore(cfg).HistoryDSN = v
	}
}

// Validate performs minimal validation for required fields.
func Validate(cfg Config) error {
	if cfg.SampleIntervalSec <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive")
	}
	if cfg.WindowSize <= 0 {
		return fmt.Errorf("WINDOW_SIZE must be positive")
	}
	if cfg.Core != nil && cfg.Core.Listen == "" {
		return fmt.Errorf("CORE.LISTEN is required")
	}
	return nil
}

// NewNodeID generates a fresh node identifier of the form QLX-1A2B3C4D.
func NewNodeID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "QLX-" + strings.ToUpper(raw[:8])
}

func ensureCore(cfg *Config) *CoreConfig {
	if cfg.Core == nil {
		cfg.Core = &CoreConfig{}
	}
	return cfg.Core
}
