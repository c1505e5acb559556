package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/p1_telemetry/pkg/obis"
	"github.com/NotCoffee418/p1_telemetry/pkg/pathing"
	"github.com/NotCoffee418/p1_telemetry/pkg/pipeline"
	"github.com/NotCoffee418/p1_telemetry/pkg/telegram"
)

// EnvInfluxToken overrides influx.token when set.
const EnvInfluxToken = "INFLUX_TOKEN"

var ErrInvalidConfig = errors.New("invalid config")

func DefaultInterpreterAPIConfig() InterpreterAPIConfig {
	return InterpreterAPIConfig{
		SerialDevice:          "/dev/ttyUSB0",
		Baudrate:              115200,
		ListenAddress:         "0.0.0.0",
		ListenPort:            9039,
		HeaderPrefix:          telegram.DefaultHeaderPrefix,
		MaxTelegramLines:      telegram.DefaultMaxLines,
		ChecksumByteOrder:     "msb",
		LineTerminator:        "crlf",
		StandardOffsetMinutes: 60,
		DaylightOffsetMinutes: 120,
		Influx: InfluxConfig{
			URL:            "http://localhost:8086",
			Org:            "home",
			HighResBucket:  "p1_high_res",
			LowResBucket:   "p1_low_res",
			TimeoutSeconds: 10,
		},
	}
}

func DefaultMeterCollectorConfig() MeterCollectorConfig {
	return MeterCollectorConfig{
		InterpreterAPIHost:    "localhost:9039",
		TLSEnabled:            false,
		DatabasePath:          pathing.GetMeterDbPath(),
		HighResRetentionHours: 48,
		PruneIntervalMinutes:  60,
	}
}

// LoadInterpreterAPIConfig reads the config at path, writing the defaults there first
// when the file does not exist. Keys missing from the file keep their default value.
func LoadInterpreterAPIConfig(path string) (*InterpreterAPIConfig, error) {
	cfg := DefaultInterpreterAPIConfig()
	if err := loadOrCreate(path, &cfg); err != nil {
		return nil, err
	}
	if token := os.Getenv(EnvInfluxToken); token != "" {
		cfg.Influx.Token = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadMeterCollectorConfig(path string) (*MeterCollectorConfig, error) {
	cfg := DefaultMeterCollectorConfig()
	if err := loadOrCreate(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadOrCreate(path string, cfg any) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := pathing.EnsureDir(filepath.Dir(path)); err != nil {
			return err
		}
		cfgFile, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create default config: %w", err)
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
		return nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	return nil
}

func (c *InterpreterAPIConfig) Validate() error {
	switch {
	case c.SerialDevice == "":
		return fmt.Errorf("%w: serial_device is required", ErrInvalidConfig)
	case c.Baudrate == 0:
		return fmt.Errorf("%w: baudrate must be positive", ErrInvalidConfig)
	case c.ListenPort <= 0 || c.ListenPort > 65535:
		return fmt.Errorf("%w: listen_port %d out of range", ErrInvalidConfig, c.ListenPort)
	case c.HeaderPrefix == "":
		return fmt.Errorf("%w: header_prefix is required", ErrInvalidConfig)
	case c.MaxTelegramLines <= 0:
		return fmt.Errorf("%w: max_telegram_lines must be positive", ErrInvalidConfig)
	}
	if _, err := telegram.ParseByteOrder(c.ChecksumByteOrder); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := parseTerminator(c.LineTerminator); err != nil {
		return err
	}
	if c.Influx.URL != "" && (c.Influx.HighResBucket == "" || c.Influx.LowResBucket == "") {
		return fmt.Errorf("%w: influx buckets are required when influx.url is set", ErrInvalidConfig)
	}
	return nil
}

func (c *MeterCollectorConfig) Validate() error {
	switch {
	case c.InterpreterAPIHost == "":
		return fmt.Errorf("%w: interpreter_api_host is required", ErrInvalidConfig)
	case c.DatabasePath == "":
		return fmt.Errorf("%w: database_path is required", ErrInvalidConfig)
	case c.HighResRetentionHours <= 0:
		return fmt.Errorf("%w: high_res_retention_hours must be positive", ErrInvalidConfig)
	case c.PruneIntervalMinutes <= 0:
		return fmt.Errorf("%w: prune_interval_minutes must be positive", ErrInvalidConfig)
	}
	return nil
}

// PipelineConfig translates the protocol settings for pipeline.NewProcessor.
func (c *InterpreterAPIConfig) PipelineConfig() (pipeline.Config, error) {
	order, err := telegram.ParseByteOrder(c.ChecksumByteOrder)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	terminator, err := parseTerminator(c.LineTerminator)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		HeaderPrefix: c.HeaderPrefix,
		MaxLines:     c.MaxTelegramLines,
		Terminator:   terminator,
		ByteOrder:    order,
		Offsets: obis.Offsets{
			Standard: time.Duration(c.StandardOffsetMinutes) * time.Minute,
			Daylight: time.Duration(c.DaylightOffsetMinutes) * time.Minute,
		},
	}, nil
}

func (c *InterpreterAPIConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.ListenPort)
}

func (c *InfluxConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *MeterCollectorConfig) HighResRetention() time.Duration {
	return time.Duration(c.HighResRetentionHours) * time.Hour
}

func (c *MeterCollectorConfig) PruneInterval() time.Duration {
	return time.Duration(c.PruneIntervalMinutes) * time.Minute
}

func parseTerminator(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "crlf":
		return "\r\n", nil
	case "lf":
		return "\n", nil
	}
	return "", fmt.Errorf("%w: unknown line_terminator %q", ErrInvalidConfig, name)
}
