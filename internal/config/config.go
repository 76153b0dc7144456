package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConnectorType identifies which transport backend should be used.
type ConnectorType string

const (
	ConnectorSerial ConnectorType = "serial"
	ConnectorIP     ConnectorType = "ip"

	DefaultSerialBaud    = 115200
	DefaultEncoding      = "utf-8"
	DefaultLogCapacity   = 500
	DefaultMaxLineBytes  = 64 * 1024
	DefaultListenAddress = "127.0.0.1:8266"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	Format    string `json:"format"`
	LogToFile bool   `json:"log_to_file"`
}

// ConnectionConfig contains the default device link parameters.
// The serial port may be left empty and picked in the console at connect time.
type ConnectionConfig struct {
	Connector  ConnectorType `json:"connector"`
	SerialPort string        `json:"serial_port"`
	SerialBaud int           `json:"serial_baud"`
	Host       string        `json:"host"`
	Encoding   string        `json:"encoding"`
}

// ConsoleConfig bounds the in-memory console state.
type ConsoleConfig struct {
	LogCapacity  int `json:"log_capacity"`
	MaxLineBytes int `json:"max_line_bytes"`
}

// WebConfig controls the embedded HTTP console.
type WebConfig struct {
	Listen string `json:"listen"`
}

// TranscriptConfig toggles the SQLite journal of console lines.
type TranscriptConfig struct {
	Enabled bool `json:"enabled"`
}

// NotificationConfig toggles desktop notifications.
type NotificationConfig struct {
	Enabled bool `json:"enabled"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Connection    ConnectionConfig   `json:"connection"`
	Console       ConsoleConfig      `json:"console"`
	Web           WebConfig          `json:"web"`
	Logging       LoggingConfig      `json:"logging"`
	Transcript    TranscriptConfig   `json:"transcript"`
	Notifications NotificationConfig `json:"notifications"`
}

func Default() AppConfig {
	return AppConfig{
		Connection: ConnectionConfig{
			Connector:  ConnectorSerial,
			SerialPort: "",
			SerialBaud: DefaultSerialBaud,
			Host:       "",
			Encoding:   DefaultEncoding,
		},
		Console: ConsoleConfig{
			LogCapacity:  DefaultLogCapacity,
			MaxLineBytes: DefaultMaxLineBytes,
		},
		Web: WebConfig{
			Listen: DefaultListenAddress,
		},
		Logging: LoggingConfig{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			LogToFile: false,
		},
		Transcript:    TranscriptConfig{Enabled: false},
		Notifications: NotificationConfig{Enabled: false},
	}
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime or passed explicitly by the operator.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	if c.Connection.Connector == "" {
		c.Connection.Connector = ConnectorSerial
	}
	if c.Connection.SerialBaud <= 0 {
		c.Connection.SerialBaud = DefaultSerialBaud
	}
	c.Connection.Encoding = strings.TrimSpace(c.Connection.Encoding)
	if c.Connection.Encoding == "" {
		c.Connection.Encoding = DefaultEncoding
	}
	if c.Console.LogCapacity <= 0 {
		c.Console.LogCapacity = DefaultLogCapacity
	}
	if c.Console.MaxLineBytes <= 0 {
		c.Console.MaxLineBytes = DefaultMaxLineBytes
	}
	if strings.TrimSpace(c.Web.Listen) == "" {
		c.Web.Listen = DefaultListenAddress
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func (c AppConfig) Validate() error {
	switch c.Connection.Connector {
	case ConnectorSerial, ConnectorIP:
	default:
		return fmt.Errorf("unknown connector: %s", c.Connection.Connector)
	}
	if c.Connection.SerialBaud <= 0 {
		return errors.New("serial baud must be positive")
	}
	if c.Console.LogCapacity <= 0 {
		return errors.New("console log capacity must be positive")
	}
	if c.Console.MaxLineBytes <= 0 {
		return errors.New("console max line bytes must be positive")
	}
	if strings.TrimSpace(c.Web.Listen) == "" {
		return errors.New("web listen address is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %q", c.Logging.Format)
	}

	return nil
}

// ValidateTarget checks that the connection points at a concrete device.
func (c ConnectionConfig) ValidateTarget() error {
	switch c.Connector {
	case ConnectorSerial:
		if strings.TrimSpace(c.SerialPort) == "" {
			return errors.New("serial port is required")
		}
		if c.SerialBaud <= 0 {
			return errors.New("serial baud must be positive")
		}
	case ConnectorIP:
		if strings.TrimSpace(c.Host) == "" {
			return errors.New("ip host is required")
		}
	default:
		return fmt.Errorf("unknown connector: %s", c.Connector)
	}

	return nil
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
