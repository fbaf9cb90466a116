// Package appconf holds the process configuration: which stop and track to
// watch, how to render the sensor, which upstream feed to poll and how the
// HTTP surface behaves.
package appconf

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

// Display modes.
const (
	ModeSingle = "single"
	ModeList   = "list"
)

// Feed variants.
const (
	FeedAreaInformation = "areainformation"
	FeedURA             = "ura"
	FeedGTFSRT          = "gtfsrt"
)

const (
	DefaultName         = "ASEAG Next Bus"
	DefaultMode         = ModeSingle
	DefaultFeed         = FeedAreaInformation
	DefaultBaseURL      = "https://mova.aseag.de"
	DefaultPollInterval = 60 * time.Second
	DefaultFetchTimeout = 10 * time.Second
	DefaultPort         = 4000
	DefaultRateLimit    = 100
)

// Config is the complete configuration of one sensor process.
type Config struct {
	StopID string   `yaml:"stop_id" validate:"required"`
	Track  string   `yaml:"track" validate:"required_without=TrackList"`
	// TrackList is the multi-track form; Track is kept for older configs.
	TrackList []string `yaml:"tracks" validate:"required_without=Track,dive,required"`
	Mode      string   `yaml:"mode" validate:"oneof=single list"`
	Name      string   `yaml:"name"`

	Feed         string        `yaml:"feed" validate:"oneof=areainformation ura gtfsrt"`
	BaseURL      string        `yaml:"base_url" validate:"required,url"`
	FeedURL      string        `yaml:"feed_url" validate:"omitempty,url"`
	SourceSystem bool          `yaml:"source_system"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gte=10s"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`

	Port      int         `yaml:"port" validate:"gt=0,lte=65535"`
	Env       Environment `yaml:"env" validate:"oneof=development test production"`
	LogFormat string      `yaml:"log_format" validate:"oneof=text json"`
	Verbose   bool        `yaml:"verbose"`
	RateLimit int         `yaml:"rate_limit" validate:"gte=0"`
}

// Default returns a Config with every optional field set. StopID and the
// track filter have no default.
func Default() Config {
	return Config{
		Mode:         DefaultMode,
		Name:         DefaultName,
		Feed:         DefaultFeed,
		BaseURL:      DefaultBaseURL,
		PollInterval: DefaultPollInterval,
		FetchTimeout: DefaultFetchTimeout,
		Port:         DefaultPort,
		Env:          Development,
		LogFormat:    "text",
		RateLimit:    DefaultRateLimit,
	}
}

// ReadFile reads a YAML (or JSON) config file on top of Default without
// validating it, so callers can apply overrides first.
func ReadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromFile is ReadFile followed by Validate.
func LoadFromFile(path string) (Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct-tag rules and reports every violated field at once.
func (c Config) Validate() error {
	var msgs []string

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %w", err)
		}
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	// the GTFS-RT feed has no per-stop endpoint to derive from base_url
	if c.Feed == FeedGTFSRT && c.FeedURL == "" {
		msgs = append(msgs, `Config.FeedURL failed "required_if"`)
	}
	// a URA request is scoped to a single DirectionID
	if c.Feed == FeedURA && len(c.Tracks()) > 1 {
		msgs = append(msgs, `Config.TrackList failed "max=1"`)
	}

	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Tracks returns the configured track filter, whichever form it was given in.
func (c Config) Tracks() []string {
	if len(c.TrackList) > 0 {
		return c.TrackList
	}
	if c.Track == "" {
		return nil
	}
	return []string{c.Track}
}
