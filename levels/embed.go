// Package levels bundles starter projects that can be opened from the editor
// or the command line.
package levels

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/milk9111/stagecraft/project"
)

//go:embed *.json
var LevelsFS embed.FS

// List returns the names of the bundled projects without extension.
func List() ([]string, error) {
	files, err := fs.Glob(LevelsFS, "*.json")
	if err != nil {
		return nil, fmt.Errorf("levels: list: %w", err)
	}
	for i, f := range files {
		files[i] = strings.TrimSuffix(f, ".json")
	}
	return files, nil
}

// LoadProjectFromFS decodes a bundled project. The ".json" extension is
// optional.
func LoadProjectFromFS(name string) (project.Project, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	data, err := fs.ReadFile(LevelsFS, name)
	if err != nil {
		return project.Project{}, fmt.Errorf("levels: read %s: %w", name, err)
	}
	p, err := project.Decode(data)
	if err != nil {
		return project.Project{}, fmt.Errorf("levels: %s: %w", name, err)
	}
	return p, nil
}
