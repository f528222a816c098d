package prefabs

import (
	"fmt"
	"sort"

	"github.com/milk9111/stagecraft/project"
)

// Prefab converts the YAML entry into the document's catalog entry.
func (s PrefabSpec) Prefab() project.Prefab {
	name := s.Name
	if name == "" {
		name = s.ID
	}
	return project.Prefab{
		ID:            s.ID,
		Name:          name,
		Color:         s.Color.Hex,
		Emoji:         s.Emoji,
		DefaultWidth:  s.DefaultWidth,
		DefaultHeight: s.DefaultHeight,
	}
}

// LoadCatalog loads every prefab file and returns the catalog sorted by name.
// Duplicate ids are an error.
func LoadCatalog() ([]project.Prefab, error) {
	names, err := List()
	if err != nil {
		return nil, err
	}
	catalog := make([]project.Prefab, 0, len(names))
	files := map[string]string{}
	for _, name := range names {
		spec, err := LoadPrefabSpec(name)
		if err != nil {
			return nil, err
		}
		if prev, ok := files[spec.ID]; ok {
			return nil, fmt.Errorf("prefabs: duplicate id %q in %s and %s", spec.ID, prev, name)
		}
		files[spec.ID] = name
		catalog = append(catalog, spec.Prefab())
	}
	sort.SliceStable(catalog, func(i, j int) bool {
		if catalog[i].Name != catalog[j].Name {
			return catalog[i].Name < catalog[j].Name
		}
		return catalog[i].ID < catalog[j].ID
	})
	return catalog, nil
}

// Merge returns the catalog entries whose ids are not yet in the project.
func Merge(p project.Project, catalog []project.Prefab) []project.Prefab {
	var missing []project.Prefab
	for _, pf := range catalog {
		if _, ok := p.Prefab(pf.ID); !ok {
			missing = append(missing, pf)
		}
	}
	return missing
}
