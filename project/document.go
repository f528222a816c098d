package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMalformedDocument is returned when a document does not parse or lacks the
// prefabs or entities arrays.
var ErrMalformedDocument = errors.New("project: malformed document")

// document mirrors Project with the arrays as pointers so that a missing or
// null array can be told apart from an empty one.
type document struct {
	Name          string    `json:"name"`
	Width         float64   `json:"width"`
	Height        float64   `json:"height"`
	Background    string    `json:"background"`
	SnapSize      float64   `json:"snapSize"`
	Prefabs       *[]Prefab `json:"prefabs"`
	Entities      *[]Entity `json:"entities"`
	LastUpdatedAt int64     `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy,omitempty"`
}

// Encode serializes p as an indented JSON document.
func Encode(p Project) ([]byte, error) {
	p = p.Clone()
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("project: encode: %w", err)
	}
	return b, nil
}

// Decode parses a document. Only the presence of the prefabs and entities
// arrays is checked; numeric fields are taken as they are.
func Decode(data []byte) (Project, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Project{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.Prefabs == nil {
		return Project{}, fmt.Errorf("%w: missing prefabs", ErrMalformedDocument)
	}
	if doc.Entities == nil {
		return Project{}, fmt.Errorf("%w: missing entities", ErrMalformedDocument)
	}
	p := Project{
		Name:          doc.Name,
		Width:         doc.Width,
		Height:        doc.Height,
		Background:    doc.Background,
		SnapSize:      doc.SnapSize,
		Prefabs:       *doc.Prefabs,
		Entities:      *doc.Entities,
		LastUpdatedAt: doc.LastUpdatedAt,
		LastUpdatedBy: doc.LastUpdatedBy,
	}
	return p.Clone(), nil
}

// ReadFile loads and decodes a document from disk.
func ReadFile(path string) (Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("project: read %s: %w", path, err)
	}
	return Decode(b)
}

// WriteFile writes data into dir under the suggested name, creating dir when
// needed, and returns the final path.
func WriteFile(dir string, data []byte, suggestedName string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("project: write: %w", err)
	}
	path := filepath.Join(dir, suggestedName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("project: write %s: %w", path, err)
	}
	return path, nil
}

// SuggestedFileName derives a file name from the project name.
func SuggestedFileName(p Project) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "project"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String() + ".json"
}
