package faceslots

import (
	"fmt"
	"time"

	"github.com/ferro-labs/faceslots/providers"
	"github.com/ferro-labs/faceslots/slots"
)

// Config holds the configuration for a watch face and the daemon serving it.
type Config struct {
	// WatchFace identifies the watch face whose slots are managed.
	WatchFace string `json:"watch_face" yaml:"watch_face"`
	// Slots declares every slot location the face knows about.
	Slots []SlotConfig `json:"slots" yaml:"slots"`
	// Lookup selects the backend answering provider lookups.
	Lookup LookupConfig `json:"lookup" yaml:"lookup"`
	// Chooser configures how provider chooser sessions are run.
	Chooser ChooserConfig `json:"chooser" yaml:"chooser"`
	// Server configures the HTTP API (daemon only).
	Server ServerConfig `json:"server" yaml:"server"`
	// Log configures the process logger.
	Log LogConfig `json:"log" yaml:"log"`
}

// SlotConfig declares one slot. A negative ID marks a location the face
// does not offer.
type SlotConfig struct {
	Location       string   `json:"location" yaml:"location"`
	ID             int      `json:"id" yaml:"id"`
	SupportedTypes []string `json:"supported_types,omitempty" yaml:"supported_types,omitempty"`
}

// LookupConfig selects a lookup backend.
type LookupConfig struct {
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"` // memory (default), sqlite, postgres
	DSN     string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Workers int    `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// ChooserMode names a chooser implementation.
type ChooserMode string

// ChooserMode constants define the supported chooser launchers.
const (
	ChooserLocal ChooserMode = "local"
	ChooserHTTP  ChooserMode = "http"
)

// ChooserConfig configures chooser sessions.
type ChooserConfig struct {
	Mode ChooserMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	// URL of the external chooser service (http mode).
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// CallbackBaseURL is how the external chooser reaches this daemon.
	CallbackBaseURL string `json:"callback_base_url,omitempty" yaml:"callback_base_url,omitempty"`
	// Picker is the local chooser's stand-in for the user: first, cancel,
	// or a provider name.
	Picker           string `json:"picker,omitempty" yaml:"picker,omitempty"`
	FailureThreshold int    `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	OpenTimeout      string `json:"open_timeout,omitempty" yaml:"open_timeout,omitempty"`
}

// Timeout parses OpenTimeout. An empty value yields zero.
func (c ChooserConfig) Timeout() (time.Duration, error) {
	if c.OpenTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.OpenTimeout)
	if err != nil {
		return 0, fmt.Errorf("chooser open_timeout: %w", err)
	}
	return d, nil
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string  `json:"addr,omitempty" yaml:"addr,omitempty"`
	Token     string  `json:"token,omitempty" yaml:"token,omitempty"`
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"` // select requests per second per client
	Burst     int     `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Registry builds the slot registry declared by the config.
func (c Config) Registry() (*slots.Registry, error) {
	declared := make([]slots.Slot, 0, len(c.Slots))
	for i, s := range c.Slots {
		loc, err := slots.ParseLocation(s.Location)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		declared = append(declared, slots.Slot{
			Location:       loc,
			ID:             s.ID,
			SupportedTypes: providers.TypesFromStrings(s.SupportedTypes),
		})
	}
	return slots.New(declared...)
}

// CoordinatorConfig returns the coordinator settings derived from c.
func (c Config) CoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{WatchFace: c.WatchFace}
}
