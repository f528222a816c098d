package prefabs

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

//go:embed *.yaml
var PrefabsFS embed.FS

// DiskDir is checked before the embedded files so prefabs and scripts can be
// edited without rebuilding.
var DiskDir = "prefabs"

func LoadScript(name string) ([]byte, error) {
	clean := cleanScriptPath(name)
	if data, err := os.ReadFile(diskPrefabPath(clean)); err == nil {
		return data, nil
	}
	return ScriptsFS.ReadFile(clean)
}

func Load(name string) ([]byte, error) {
	clean := cleanPrefabPath(name)
	if data, err := os.ReadFile(diskPrefabPath(clean)); err == nil {
		return data, nil
	}
	return PrefabsFS.ReadFile(clean)
}

// List returns the names of every prefab file, embedded or on disk.
func List() ([]string, error) {
	seen := map[string]bool{}
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		embedded, err := fs.Glob(PrefabsFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("prefabs: list: %w", err)
		}
		for _, name := range embedded {
			seen[name] = true
		}
		onDisk, err := filepath.Glob(filepath.Join(DiskDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("prefabs: list: %w", err)
		}
		for _, path := range onDisk {
			seen[filepath.Base(path)] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListScripts returns the names of the bundled placement scripts.
func ListScripts() ([]string, error) {
	names, err := fs.Glob(ScriptsFS, "scripts/*.tengo")
	if err != nil {
		return nil, fmt.Errorf("prefabs: list scripts: %w", err)
	}
	for i, name := range names {
		names[i] = strings.TrimPrefix(name, "scripts/")
	}
	return names, nil
}

func cleanPrefabPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if strings.HasPrefix(s, "prefabs/") {
		return strings.TrimPrefix(s, "prefabs/")
	}
	return s
}

func cleanScriptPath(path string) string {
	if path == "" {
		return ""
	}

	s := filepath.ToSlash(path)

	if after, ok := strings.CutPrefix(s, "prefabs/scripts/"); ok {
		s = after
	}

	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		s = after
	}

	if after, ok := strings.CutPrefix(s, "scripts/"); ok {
		s = after
	}

	return fmt.Sprintf("scripts/%s", s)
}

func diskPrefabPath(clean string) string {
	return filepath.Join(DiskDir, filepath.FromSlash(clean))
}
