package config

type MeterCollectorConfig struct {
	InterpreterAPIHost    string `toml:"interpreter_api_host"`
	TLSEnabled            bool   `toml:"tls_enabled"`
	DatabasePath          string `toml:"database_path"`
	HighResRetentionHours int    `toml:"high_res_retention_hours"`
	PruneIntervalMinutes  int    `toml:"prune_interval_minutes"`
}

type InterpreterAPIConfig struct {
	SerialDevice  string `toml:"serial_device"`
	Baudrate      uint   `toml:"baudrate"`
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`

	HeaderPrefix      string `toml:"header_prefix"`
	MaxTelegramLines  int    `toml:"max_telegram_lines"`
	ChecksumByteOrder string `toml:"checksum_byte_order"` // "msb" or "lsb"
	LineTerminator    string `toml:"line_terminator"`     // "crlf" or "lf"

	// Meter wall clock offsets east of UTC
	StandardOffsetMinutes int `toml:"standard_offset_minutes"`
	DaylightOffsetMinutes int `toml:"daylight_offset_minutes"`

	Influx InfluxConfig `toml:"influx"`
}

// InfluxConfig points the two resolution tiers at InfluxDB 2 buckets.
// An empty URL disables the buckets.
type InfluxConfig struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	Org            string `toml:"org"`
	HighResBucket  string `toml:"high_res_bucket"`
	LowResBucket   string `toml:"low_res_bucket"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}
