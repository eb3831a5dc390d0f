package faceslots

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/ferro-labs/faceslots/lookup"
)

//go:embed config.schema.json
var configSchemaSource string

var (
	configSchemaOnce sync.Once
	configSchema     *jsonschema.Schema
	configSchemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	configSchemaOnce.Do(func() {
		configSchema, configSchemaErr = jsonschema.CompileString("config.schema.json", configSchemaSource)
	})
	return configSchema, configSchemaErr
}

// LoadConfig reads and parses a config file from the given path.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness: shape against the
// bundled JSON schema, then the cross-field rules the schema cannot express.
func ValidateConfig(cfg Config) error {
	if err := validateSchema(cfg); err != nil {
		return err
	}

	if _, err := cfg.Registry(); err != nil {
		return fmt.Errorf("invalid slots: %w", err)
	}

	backend := cfg.Lookup.Backend
	if backend == "" {
		backend = "memory"
	}
	known := false
	for _, name := range lookup.Backends() {
		if name == backend {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q", lookup.ErrUnknownBackend, cfg.Lookup.Backend)
	}
	if backend == "postgres" && cfg.Lookup.DSN == "" {
		return errors.New("postgres lookup backend requires a dsn")
	}

	if cfg.Chooser.Mode == ChooserHTTP {
		if cfg.Chooser.URL == "" {
			return errors.New("http chooser requires a url")
		}
		if cfg.Chooser.CallbackBaseURL == "" {
			return errors.New("http chooser requires a callback_base_url")
		}
	}
	if _, err := cfg.Chooser.Timeout(); err != nil {
		return err
	}

	return nil
}

func validateSchema(cfg Config) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
