// Package config loads calnotify settings from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"calnotify/internal/poller"

	"gopkg.in/yaml.v3"
)

const (
	SourceGoogle = "google"
	SourceCalDAV = "caldav"

	DefaultPath         = "calnotify.yaml"
	DefaultSchedule     = poller.DefaultSchedule
	DefaultSecretsFile  = "client_secrets.json"
	DefaultTokenFile    = "token.json"
	DefaultCalendarID   = "primary"
	DefaultTaskList     = "@default"
	DefaultLogLevel     = "info"
	DefaultCalDAVServer = "https://caldav.icloud.com/"
)

// GoogleConfig selects the Google application and the calendar and task list to poll.
type GoogleConfig struct {
	// ClientID and ClientSecret take precedence over ClientSecretsFile when both are set.
	ClientID          string `yaml:"client_id"`
	ClientSecret      string `yaml:"client_secret"`
	ClientSecretsFile string `yaml:"client_secrets_file"`
	TokenFile         string `yaml:"token_file"`
	CalendarID        string `yaml:"calendar_id"`
	TaskList          string `yaml:"task_list"`
}

// CalDAVConfig describes a CalDAV account.
type CalDAVConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CalendarName string `yaml:"calendar_name"`
	TaskListName string `yaml:"task_list_name"`
}

// NotifierConfig selects the notification renderer executable.
type NotifierConfig struct {
	// Path to the renderer. Empty means bin/Notifier.exe next to the binary.
	Path string   `yaml:"path"`
	Args []string `yaml:"args"`
}

// Config is the top-level application configuration.
type Config struct {
	Source string `yaml:"source"`

	Google   GoogleConfig   `yaml:"google"`
	CalDAV   CalDAVConfig   `yaml:"caldav"`
	Notifier NotifierConfig `yaml:"notifier"`

	// PollSchedule is an "@every <duration>" descriptor, "@every 60s" by default.
	PollSchedule string `yaml:"poll_schedule"`

	// Timezone is an IANA name. Empty uses the system local zone.
	Timezone string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`
}

// Default returns an in-memory default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing values with defaults.
func (c *Config) Normalize() {
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	if c.Source == "" {
		c.Source = SourceGoogle
	}
	if c.PollSchedule == "" {
		c.PollSchedule = DefaultSchedule
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Google.ClientSecretsFile == "" {
		c.Google.ClientSecretsFile = DefaultSecretsFile
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = DefaultTokenFile
	}
	if c.Google.CalendarID == "" {
		c.Google.CalendarID = DefaultCalendarID
	}
	if c.Google.TaskList == "" {
		c.Google.TaskList = DefaultTaskList
	}
	if c.CalDAV.Endpoint == "" {
		c.CalDAV.Endpoint = DefaultCalDAVServer
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	switch c.Source {
	case SourceGoogle:
	case SourceCalDAV:
		if c.CalDAV.Username == "" {
			errs = append(errs, errors.New("caldav source requires a username"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q (want %q or %q)", c.Source, SourceGoogle, SourceCalDAV))
	}
	if _, err := poller.ParseSchedule(c.PollSchedule); err != nil {
		errs = append(errs, fmt.Errorf("invalid poll_schedule: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// envOverrides maps environment variables onto config fields.
func (c *Config) envOverrides() map[string]*string {
	return map[string]*string{
		"CALNOTIFY_SOURCE":      &c.Source,
		"GOOGLE_CLIENT_ID":      &c.Google.ClientID,
		"GOOGLE_CLIENT_SECRET":  &c.Google.ClientSecret,
		"GOOGLE_CLIENT_SECRETS": &c.Google.ClientSecretsFile,
		"GOOGLE_TOKEN_FILE":     &c.Google.TokenFile,
		"GOOGLE_CALENDAR_ID":    &c.Google.CalendarID,
		"GOOGLE_TASK_LIST":      &c.Google.TaskList,
		"CALDAV_URL":            &c.CalDAV.Endpoint,
		"CALDAV_USERNAME":       &c.CalDAV.Username,
		"CALDAV_PASSWORD":       &c.CalDAV.Password,
		"CALDAV_CALENDAR_NAME":  &c.CalDAV.CalendarName,
		"CALDAV_TASK_LIST_NAME": &c.CalDAV.TaskListName,
		"NOTIFIER_PATH":         &c.Notifier.Path,
		"POLL_SCHEDULE":         &c.PollSchedule,
		"TIMEZONE":              &c.Timezone,
		"LOG_LEVEL":             &c.LogLevel,
	}
}

// ApplyEnv overrides fields with the non-empty values returned by getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	for key, field := range c.envOverrides() {
		if v := getenv(key); v != "" {
			*field = v
		}
	}
}

// Load reads the YAML file at path, applies environment overrides and
// fills defaults. A missing file is not an error.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if getenv != nil {
		cfg.ApplyEnv(getenv)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
