package prefabs

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// PrefabSpec is one prefab file.
type PrefabSpec struct {
	ID            string    `yaml:"id"`
	Name          string    `yaml:"name"`
	Color         YAMLColor `yaml:"color"`
	Emoji         string    `yaml:"emoji"`
	DefaultWidth  float64   `yaml:"default_width"`
	DefaultHeight float64   `yaml:"default_height"`
}

func LoadPrefabSpec(filename string) (PrefabSpec, error) {
	spec, err := LoadSpec[PrefabSpec](filename)
	if err != nil {
		return spec, err
	}
	if err := spec.Validate(); err != nil {
		return spec, fmt.Errorf("prefabs: %s: %w", filename, err)
	}
	return spec, nil
}

func (s PrefabSpec) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if s.DefaultWidth <= 0 || s.DefaultHeight <= 0 {
		return fmt.Errorf("default size must be positive, got %gx%g", s.DefaultWidth, s.DefaultHeight)
	}
	return nil
}

// YAMLColor is a #rrggbb or #rrggbbaa color. Hex keeps the text as written.
type YAMLColor struct {
	color.Color
	Hex string
}

func (c *YAMLColor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string")
	}

	s := strings.TrimPrefix(value.Value, "#")

	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("invalid color format: %s", value.Value)
	}

	parse := func(start int) (uint8, error) {
		v, err := strconv.ParseUint(s[start:start+2], 16, 8)
		return uint8(v), err
	}

	r, err := parse(0)
	if err != nil {
		return err
	}
	g, err := parse(2)
	if err != nil {
		return err
	}
	b, err := parse(4)
	if err != nil {
		return err
	}

	a := uint8(255)
	if len(s) == 8 {
		a, err = parse(6)
		if err != nil {
			return err
		}
	}

	c.Color = color.NRGBA{R: r, G: g, B: b, A: a}
	c.Hex = "#" + strings.ToLower(s)
	return nil
}
