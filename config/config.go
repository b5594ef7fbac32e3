// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

const envPrefix = "PLANTREPORT_"

// Logical database names.
const (
	DBProcess = "process"
	DBAudit   = "audit"
	DBAlarm   = "alarm"
)

type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Log       LogConfig                 `yaml:"log"`
	Report    ReportConfig              `yaml:"report"`
	Data      DataConfig                `yaml:"data"`
	Databases map[string]DatabaseConfig `yaml:"databases"`
}

type ServerConfig struct {
	Addr                   string `yaml:"addr"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ReportConfig struct {
	Organization      string `yaml:"organization"`
	LogoPath          string `yaml:"logo_path"`
	MaxColumnsPerPage int    `yaml:"max_columns_per_page"`
	// NoDataText is printed on empty reports; an explicit empty string
	// disables it.
	NoDataText *string `yaml:"no_data_text"`
}

type DataConfig struct {
	LocalOffsetSeconds int      `yaml:"local_offset_seconds"`
	ServiceAccounts    []string `yaml:"service_accounts"`
	IgnoredAlarms      []string `yaml:"ignored_alarms"`
	Tables             Tables   `yaml:"tables"`
}

type Tables struct {
	Float  string `yaml:"float"`
	String string `yaml:"string"`
	Audit  string `yaml:"audit"`
	Alarm  string `yaml:"alarm"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:                   ":8080",
			ReadTimeoutSeconds:     15,
			WriteTimeoutSeconds:    60,
			ShutdownTimeoutSeconds: 10,
		},
		Log: LogConfig{Level: "info"},
		Report: ReportConfig{
			Organization:      "ALIVUS LIFE SCIENCES LIMITED ANKLESHWAR",
			MaxColumnsPerPage: 8,
		},
		Data: DataConfig{
			LocalOffsetSeconds: 19800,
			ServiceAccounts: []string{
				`NT AUTHORITY\NETWORK SERVICE`,
				"N/A",
				`WORKGROUP\WIN-U1DFOUPBRPI$`,
				`WIN-U1DFOUPBRPI\ADMIN`,
				"FactoryTalk Service",
				`NT AUTHORITY\LOCAL SERVICE`,
				`NT AUTHORITY\SYSTEM`,
			},
			IgnoredAlarms: []string{
				"Alarm fault: Alarm input quality is bad",
				"Alarm fault cleared: Alarm input quality is good",
			},
			Tables: Tables{
				Float:  "float_table",
				String: "string_table",
				Audit:  "audit_report",
				Alarm:  "alarm_events",
			},
		},
		Databases: map[string]DatabaseConfig{},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result. Unknown YAML fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides scalar settings from PLANTREPORT_* variables.
// Database DSNs use PLANTREPORT_DB_<NAME>_DSN.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(envPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, envPrefix, key, v)
		}
		*dst = n
		return nil
	}

	str("ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("ORGANIZATION", &c.Report.Organization)
	str("LOGO_PATH", &c.Report.LogoPath)
	if v, ok := lookup(envPrefix + "NO_DATA_TEXT"); ok {
		c.Report.NoDataText = &v
	}
	for key, dst := range map[string]*int{
		"MAX_COLUMNS_PER_PAGE": &c.Report.MaxColumnsPerPage,
		"LOCAL_OFFSET_SECONDS": &c.Data.LocalOffsetSeconds,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	if c.Databases == nil {
		c.Databases = map[string]DatabaseConfig{}
	}
	for _, name := range []string{DBProcess, DBAudit, DBAlarm} {
		if v, ok := lookup(envPrefix + "DB_" + strings.ToUpper(name) + "_DSN"); ok {
			db := c.Databases[name]
			db.DSN = v
			c.Databases[name] = db
		}
	}
	return nil
}

// Validate checks the configuration and fills per-database defaults.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Report.MaxColumnsPerPage < 1 {
		errs = append(errs, fmt.Errorf("report.max_columns_per_page must be >= 1, got %d", c.Report.MaxColumnsPerPage))
	}
	if strings.TrimSpace(c.Report.Organization) == "" {
		errs = append(errs, errors.New("report.organization is required"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	t := c.Data.Tables
	if t.Float == "" || t.String == "" || t.Audit == "" || t.Alarm == "" {
		errs = append(errs, errors.New("data.tables entries must not be empty"))
	}
	for name, db := range c.Databases {
		switch name {
		case DBProcess, DBAudit, DBAlarm:
		default:
			errs = append(errs, fmt.Errorf("databases.%s is not a known database", name))
			continue
		}
		if db.Driver == "" {
			db.Driver = "postgres"
		}
		if db.DSN == "" {
			errs = append(errs, fmt.Errorf("databases.%s.dsn is required", name))
		}
		c.Databases[name] = db
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// NoDataLine returns the configured empty-report line, or def if unset.
func (r ReportConfig) NoDataLine(def string) string {
	if r.NoDataText == nil {
		return def
	}
	return *r.NoDataText
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// LocalOffset is the shift applied to stored timestamps before display.
func (d DataConfig) LocalOffset() time.Duration {
	return time.Duration(d.LocalOffsetSeconds) * time.Second
}
