package pathing

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir and its parents when missing.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "p1-meter.db")
}

func GetInterpreterAPIConfigPath() string {
	return filepath.Join(GetConfigDir(), "interpreter_api.toml")
}

func GetMeterCollectorConfigPath() string {
	return filepath.Join(GetConfigDir(), "meter_collector.toml")
}

func GetDataDir() string {
	return "/var/lib/p1_telemetry"
}

func GetConfigDir() string {
	return "/etc/p1_telemetry"
}
