package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadInterpreterAPIConfigWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "interpreter_api.toml")

	cfg, err := LoadInterpreterAPIConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterpreterAPIConfig(), *cfg)

	// The written file loads back to the same values
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := LoadInterpreterAPIConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadInterpreterAPIConfigPartialFile(t *testing.T) {
	path := writeFile(t, `
serial_device = "/dev/ttyAMA0"
checksum_byte_order = "lsb"

[influx]
org = "meter"
`)
	cfg, err := LoadInterpreterAPIConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyAMA0", cfg.SerialDevice)
	assert.Equal(t, "lsb", cfg.ChecksumByteOrder)
	assert.Equal(t, "meter", cfg.Influx.Org)
	assert.Equal(t, uint(115200), cfg.Baudrate)
	assert.Equal(t, "p1_high_res", cfg.Influx.HighResBucket)
}

func TestInfluxTokenFromEnvironment(t *testing.T) {
	t.Setenv(EnvInfluxToken, "s3cret")
	path := writeFile(t, "[influx]\ntoken = \"from-file\"\n")

	cfg, err := LoadInterpreterAPIConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Influx.Token)
}

func TestLoadInterpreterAPIConfigRejectsInvalid(t *testing.T) {
	tests := []string{
		`checksum_byte_order = "middle"`,
		`line_terminator = "cr"`,
		`listen_port = 70000`,
		`max_telegram_lines = 0`,
		`header_prefix = ""`,
		"[influx]\nhigh_res_bucket = \"\"",
	}
	for _, content := range tests {
		_, err := LoadInterpreterAPIConfig(writeFile(t, content))
		assert.True(t, errors.Is(err, ErrInvalidConfig), content)
	}
}

func TestLoadInterpreterAPIConfigMalformedToml(t *testing.T) {
	_, err := LoadInterpreterAPIConfig(writeFile(t, "serial_device = "))
	assert.Error(t, err)
}

func TestPipelineConfig(t *testing.T) {
	cfg := DefaultInterpreterAPIConfig()
	cfg.ChecksumByteOrder = "lsb"
	cfg.LineTerminator = "lf"
	cfg.StandardOffsetMinutes = 0
	cfg.DaylightOffsetMinutes = 60

	pc, err := cfg.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, telegram.LSBFirst, pc.ByteOrder)
	assert.Equal(t, "\n", pc.Terminator)
	assert.Equal(t, time.Duration(0), pc.Offsets.Standard)
	assert.Equal(t, time.Hour, pc.Offsets.Daylight)
	assert.Equal(t, telegram.DefaultHeaderPrefix, pc.HeaderPrefix)
	assert.Equal(t, telegram.DefaultMaxLines, pc.MaxLines)
	assert.Equal(t, "0.0.0.0:9039", cfg.ListenAddr())
}

func TestLoadMeterCollectorConfig(t *testing.T) {
	path := writeFile(t, `
interpreter_api_host = "meter.local:9039"
database_path = "/tmp/p1.db"
high_res_retention_hours = 24
`)
	cfg, err := LoadMeterCollectorConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "meter.local:9039", cfg.InterpreterAPIHost)
	assert.Equal(t, 24*time.Hour, cfg.HighResRetention())
	assert.Equal(t, time.Hour, cfg.PruneInterval())

	_, err = LoadMeterCollectorConfig(writeFile(t, "prune_interval_minutes = -1"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
