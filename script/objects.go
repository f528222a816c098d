package script

import (
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/stagecraft/project"
)

func projectObject(p project.Project) *tengo.ImmutableMap {
	prefabList := make([]tengo.Object, 0, len(p.Prefabs))
	for _, pf := range p.Prefabs {
		prefabList = append(prefabList, &tengo.ImmutableMap{Value: map[string]tengo.Object{
			"id":            &tengo.String{Value: pf.ID},
			"name":          &tengo.String{Value: pf.Name},
			"color":         &tengo.String{Value: pf.Color},
			"emoji":         &tengo.String{Value: pf.Emoji},
			"defaultWidth":  &tengo.Float{Value: pf.DefaultWidth},
			"defaultHeight": &tengo.Float{Value: pf.DefaultHeight},
		}})
	}
	entityList := make([]tengo.Object, 0, len(p.Entities))
	for _, e := range p.Entities {
		entityList = append(entityList, &tengo.ImmutableMap{Value: map[string]tengo.Object{
			"id":       &tengo.String{Value: e.ID},
			"prefabId": &tengo.String{Value: e.PrefabID},
			"name":     &tengo.String{Value: e.Name},
			"x":        &tengo.Float{Value: e.X},
			"y":        &tengo.Float{Value: e.Y},
			"scale":    &tengo.Float{Value: e.Scale},
			"rotation": &tengo.Float{Value: e.Rotation},
			"width":    &tengo.Float{Value: e.Width},
			"height":   &tengo.Float{Value: e.Height},
		}})
	}
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"name":     &tengo.String{Value: p.Name},
		"width":    &tengo.Float{Value: p.Width},
		"height":   &tengo.Float{Value: p.Height},
		"snapSize": &tengo.Float{Value: p.SnapSize},
		"prefabs":  &tengo.ImmutableArray{Value: prefabList},
		"entities": &tengo.ImmutableArray{Value: entityList},
	}}
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Error:
		return "error: " + objectAsString(v.Value)
	default:
		return strings.Trim(v.String(), "\"")
	}
}
