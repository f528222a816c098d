// Package config loads the editor's YAML settings and the relay's environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/storage"
	"gopkg.in/yaml.v3"
)

type StoreConfig struct {
	Kind string `yaml:"kind"`
	DSN  string `yaml:"dsn"`
}

type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Editor holds the editor settings. Fields missing from the file keep their
// defaults.
type Editor struct {
	Actor     string                    `yaml:"actor"`
	RelayURL  string                    `yaml:"relay_url"`
	SessionID string                    `yaml:"session_id"`
	Store     StoreConfig               `yaml:"store"`
	PrefabDir string                    `yaml:"prefab_dir"`
	ExportDir string                    `yaml:"export_dir"`
	Autosave  time.Duration             `yaml:"autosave"`
	Ping      time.Duration             `yaml:"ping"`
	Window    WindowConfig              `yaml:"window"`
	Placement project.PlacementSettings `yaml:"placement"`
}

func DefaultEditor() Editor {
	return Editor{
		Actor:     "user-" + uuid.NewString()[:8],
		RelayURL:  "ws://localhost:8765/ws",
		SessionID: "default",
		Store:     StoreConfig{Kind: storage.KindFile, DSN: "stagecraft-data"},
		PrefabDir: "prefabs",
		ExportDir: "exports",
		Autosave:  10 * time.Second,
		Ping:      20 * time.Second,
		Window:    WindowConfig{Width: 1280, Height: 800},
		Placement: project.DefaultPlacement(),
	}
}

// LoadEditor reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadEditor(path string) (Editor, error) {
	cfg := DefaultEditor()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Editor{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Editor{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Editor{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Overrides are command-line values; empty fields leave the config alone.
type Overrides struct {
	Actor     string
	RelayURL  string
	SessionID string
}

func (e Editor) With(o Overrides) Editor {
	if s := strings.TrimSpace(o.Actor); s != "" {
		e.Actor = s
	}
	if s := strings.TrimSpace(o.RelayURL); s != "" {
		e.RelayURL = s
	}
	if s := strings.TrimSpace(o.SessionID); s != "" {
		e.SessionID = s
	}
	return e
}

func (e Editor) Validate() error {
	var errs []error
	if strings.TrimSpace(e.Actor) == "" {
		errs = append(errs, errors.New("actor is required"))
	}
	if !storage.ValidKind(e.Store.Kind) {
		errs = append(errs, fmt.Errorf("unknown store kind %q (want one of %s)", e.Store.Kind, strings.Join(storage.Kinds(), ", ")))
	}
	if e.Window.Width <= 0 || e.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", e.Window.Width, e.Window.Height))
	}
	if e.Autosave < 0 {
		errs = append(errs, fmt.Errorf("autosave must not be negative, got %v", e.Autosave))
	}
	if e.Ping < 0 {
		errs = append(errs, fmt.Errorf("ping must not be negative, got %v", e.Ping))
	}
	if e.Placement.Scale <= 0 {
		errs = append(errs, fmt.Errorf("placement scale must be positive, got %v", e.Placement.Scale))
	}
	return errors.Join(errs...)
}
