package faceslots

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ferro-labs/faceslots/lookup"
	"github.com/ferro-labs/faceslots/providers"
	"github.com/ferro-labs/faceslots/slots"
)

func validConfig() Config {
	return Config{
		WatchFace: "com.example.faces/.Analog",
		Slots: []SlotConfig{
			{Location: "left", ID: 0, SupportedTypes: []string{"short_text", "icon"}},
			{Location: "right", ID: 1, SupportedTypes: []string{"short_text"}},
			{Location: "background", ID: -1},
		},
	}
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	data := `
watch_face: com.example.faces/.Analog
slots:
  - location: left
    id: 0
    supported_types: [short_text, ranged_value]
  - location: top
    id: 2
lookup:
  backend: sqlite
  dsn: bindings.db
  workers: 8
chooser:
  mode: http
  url: http://chooser.local/sessions
  callback_base_url: http://faceslotsd:8080
  open_timeout: 45s
server:
  addr: ":9090"
  rate_limit: 2.5
  burst: 5
log:
  level: debug
  format: text
`
	path := writeTempFile(t, "config.yaml", data)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WatchFace != "com.example.faces/.Analog" {
		t.Errorf("watch face = %q", cfg.WatchFace)
	}
	want := []SlotConfig{
		{Location: "left", ID: 0, SupportedTypes: []string{"short_text", "ranged_value"}},
		{Location: "top", ID: 2},
	}
	if diff := cmp.Diff(want, cfg.Slots); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
	if cfg.Lookup.Backend != "sqlite" || cfg.Lookup.Workers != 8 {
		t.Errorf("lookup = %+v", cfg.Lookup)
	}
	if cfg.Chooser.Mode != ChooserHTTP {
		t.Errorf("chooser mode = %q", cfg.Chooser.Mode)
	}
	if d, err := cfg.Chooser.Timeout(); err != nil || d.Seconds() != 45 {
		t.Errorf("open timeout = %v, %v", d, err)
	}
	if cfg.Server.RateLimit != 2.5 || cfg.Server.Burst != 5 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if err := ValidateConfig(*cfg); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	data := `{
		"watch_face": "face",
		"slots": [{"location": "bottom", "id": 4, "supported_types": ["long_text"]}]
	}`
	path := writeTempFile(t, "config.json", data)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Slots) != 1 || cfg.Slots[0].ID != 4 {
		t.Errorf("slots = %+v", cfg.Slots)
	}
}

func TestLoadConfig_NonExistentFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for non-existent file")
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, "bad.json", `{invalid`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "bad.yaml", "slots: [unterminated")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	path := writeTempFile(t, "config.toml", `watch_face = "x"`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	if err := ValidateConfig(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateConfig_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing watch face", func(c *Config) { c.WatchFace = "" }},
		{"no slots", func(c *Config) { c.Slots = nil }},
		{"unknown location", func(c *Config) { c.Slots[0].Location = "center" }},
		{"duplicate location", func(c *Config) { c.Slots[1].Location = "left" }},
		{"duplicate id", func(c *Config) { c.Slots[1].ID = 0 }},
		{"empty type", func(c *Config) { c.Slots[0].SupportedTypes = []string{""} }},
		{"unknown chooser mode", func(c *Config) { c.Chooser.Mode = "carrier-pigeon" }},
		{"http chooser without url", func(c *Config) {
			c.Chooser.Mode = ChooserHTTP
			c.Chooser.CallbackBaseURL = "http://daemon"
		}},
		{"http chooser without callback", func(c *Config) {
			c.Chooser.Mode = ChooserHTTP
			c.Chooser.URL = "http://chooser"
		}},
		{"bad open timeout", func(c *Config) { c.Chooser.OpenTimeout = "soon" }},
		{"negative workers", func(c *Config) { c.Lookup.Workers = -1 }},
		{"postgres without dsn", func(c *Config) { c.Lookup.Backend = "postgres" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := ValidateConfig(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateConfig_UnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Lookup.Backend = "etcd"
	if err := ValidateConfig(cfg); !errors.Is(err, lookup.ErrUnknownBackend) {
		t.Fatalf("got %v, want ErrUnknownBackend", err)
	}
}

func TestConfig_Registry(t *testing.T) {
	reg, err := validConfig().Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	left := reg.SlotFor(slots.Left)
	if left.ID != 0 {
		t.Errorf("left id = %d", left.ID)
	}
	if diff := cmp.Diff([]providers.Type{providers.TypeShortText, providers.TypeIcon}, left.SupportedTypes); diff != "" {
		t.Errorf("left types mismatch (-want +got):\n%s", diff)
	}
	if bg := reg.SlotFor(slots.Background); bg.Valid() {
		t.Errorf("background should be declared but not present, got id %d", bg.ID)
	}
	if top := reg.SlotFor(slots.Top); top.ID != slots.InvalidID {
		t.Errorf("undeclared top should be invalid, got id %d", top.ID)
	}
	if len(reg.Valid()) != 2 {
		t.Errorf("valid slots = %d, want 2", len(reg.Valid()))
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
