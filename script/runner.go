// Package script runs tengo placement scripts against a project store.
//
// A script sees two read-only globals, project and params, and four
// functions:
//
//	place(prefabId, x, y)  // id of the new entity, or an error value
//	move(id, dx, dy)       // true, or an error value
//	remove(id)             // true, or an error value
//	log(args...)
//
// Every place, move and remove is its own stamped store mutation.
package script

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/stagecraft/prefabs"
	"github.com/milk9111/stagecraft/project"
)

// os is left out so scripts cannot touch the filesystem.
var allowedModules = []string{"math", "text", "times", "rand", "fmt", "json", "enum", "base64", "hex"}

// Result counts what a run changed.
type Result struct {
	Placed  int
	Moved   int
	Removed int
	Logs    []string
}

type Runner struct {
	store     *project.Store
	logger    *log.Logger
	placement func() project.PlacementSettings
}

type Option func(*Runner)

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithPlacement sets where place reads its placement settings from. fn is
// called on every place so toggles made between runs take effect.
func WithPlacement(fn func() project.PlacementSettings) Option {
	return func(r *Runner) { r.placement = fn }
}

func New(store *project.Store, opts ...Option) *Runner {
	r := &Runner{
		store:     store,
		logger:    log.Default(),
		placement: project.DefaultPlacement,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunFile runs a script from a path on disk, falling back to the bundled
// scripts when no such file exists.
func (r *Runner) RunFile(ctx context.Context, name string, params map[string]string) (Result, error) {
	src, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		src, err = prefabs.LoadScript(name)
	}
	if err != nil {
		return Result{}, fmt.Errorf("script: load %s: %w", name, err)
	}
	return r.Run(ctx, src, params)
}

// Run compiles and runs src. Mutations made before a runtime error are kept.
func (r *Runner) Run(ctx context.Context, src []byte, params map[string]string) (Result, error) {
	var res Result

	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(allowedModules...))

	paramValues := make(map[string]tengo.Object, len(params))
	for k, v := range params {
		paramValues[k] = &tengo.String{Value: v}
	}
	globals := map[string]tengo.Object{
		"project": projectObject(r.store.Project()),
		"params":  &tengo.ImmutableMap{Value: paramValues},
		"place":   &tengo.UserFunction{Name: "place", Value: r.place(&res)},
		"move":    &tengo.UserFunction{Name: "move", Value: r.move(&res)},
		"remove":  &tengo.UserFunction{Name: "remove", Value: r.remove(&res)},
		"log":     &tengo.UserFunction{Name: "log", Value: r.log(&res)},
	}
	for name, value := range globals {
		if err := script.Add(name, value); err != nil {
			return res, fmt.Errorf("script: add %s: %w", name, err)
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return res, fmt.Errorf("script: compile: %w", err)
	}
	if err := compiled.RunContext(ctx); err != nil {
		return res, fmt.Errorf("script: run: %w", err)
	}
	return res, nil
}

func errorValue(format string, args ...any) tengo.Object {
	return &tengo.Error{Value: &tengo.String{Value: fmt.Sprintf(format, args...)}}
}

func (r *Runner) place(res *Result) tengo.CallableFunc {
	return func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		prefabID := strings.TrimSpace(objectAsString(args[0]))
		x, okX := tengo.ToFloat64(args[1])
		y, okY := tengo.ToFloat64(args[2])
		if !okX || !okY {
			return errorValue("place: x and y must be numbers"), nil
		}
		e, err := r.store.PlaceEntity(prefabID, x, y, r.placement())
		if err != nil {
			return errorValue("place: %v", err), nil
		}
		res.Placed++
		return &tengo.String{Value: e.ID}, nil
	}
}

func (r *Runner) move(res *Result) tengo.CallableFunc {
	return func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		id := objectAsString(args[0])
		dx, okX := tengo.ToFloat64(args[1])
		dy, okY := tengo.ToFloat64(args[2])
		if !okX || !okY {
			return errorValue("move: dx and dy must be numbers"), nil
		}
		if err := r.store.MoveEntity(id, dx, dy); err != nil {
			return errorValue("move: %v", err), nil
		}
		res.Moved++
		return tengo.TrueValue, nil
	}
}

func (r *Runner) remove(res *Result) tengo.CallableFunc {
	return func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		if err := r.store.DeleteEntity(objectAsString(args[0])); err != nil {
			return errorValue("remove: %v", err), nil
		}
		res.Removed++
		return tengo.TrueValue, nil
	}
}

func (r *Runner) log(res *Result) tengo.CallableFunc {
	return func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		line := strings.Join(parts, " ")
		res.Logs = append(res.Logs, line)
		r.logger.Printf("script: %s", line)
		return tengo.UndefinedValue, nil
	}
}
