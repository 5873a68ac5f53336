// Package config reads the per-directory marker that enables tracking.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/thiagokokada/doublegit-go/internal/git/backend"
)

// FileName marks a directory as a tracked mirror.
const FileName = "doublegit.json"

// BackendEnv selects the default backend when neither the marker nor the
// command line does.
const BackendEnv = "DOUBLEGIT_BACKEND"

// ErrNotTracked is returned for directories without a marker file. It is
// not a failure: such directories are skipped.
var ErrNotTracked = errors.New("directory is not tracked")

type Config struct {
	// Type selects the hosting platform handler.
	Type string
	// Backend is empty unless the marker picks one.
	Backend backend.Kind
	// Settings holds the remaining keys as a JSON object, for the platform.
	Settings []byte
}

func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the marker of dir.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotTracked
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Path(dir), err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Path(dir), err)
	}
	return cfg, nil
}

// Parse decodes marker contents. JSON is expected but any YAML mapping is
// accepted.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if raw == nil {
		return nil, errors.New("invalid config: expected an object")
	}
	typ, ok := raw["type"].(string)
	if !ok || strings.TrimSpace(typ) == "" {
		return nil, errors.New(`invalid config: missing string "type"`)
	}
	delete(raw, "type")

	cfg := &Config{Type: typ}
	if v, present := raw["backend"]; present {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New(`invalid config: "backend" must be a string`)
		}
		kind, err := backend.ParseKind(s)
		if err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		cfg.Backend = kind
		delete(raw, "backend")
	}

	settings, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings
	return cfg, nil
}

// ResolveBackend picks the backend for a run: an explicit override first,
// then the marker, then BackendEnv, then the native backend.
func (c *Config) ResolveBackend(override backend.Kind) (backend.Kind, error) {
	if override != "" {
		return override, nil
	}
	if c.Backend != "" {
		return c.Backend, nil
	}
	return backend.ParseKind(EnvDefault(BackendEnv, string(backend.KindNative)))
}

func EnvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
