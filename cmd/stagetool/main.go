package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/milk9111/stagecraft/levels"
	"github.com/milk9111/stagecraft/prefabs"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/render"
	"github.com/milk9111/stagecraft/script"
)

const usage = `usage: stagetool <command> [flags] args...

commands:
  render   [-size N] <in.json> <out.png>
  script   [-param k=v]... [-timeout D] <in.json> <script.tengo> <out.json>
  validate <in.json>
  new      [-from level] <name> <width> <height> <out.json>
  levels
  scripts
`

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("stagetool: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "render":
		return runRender(rest, out)
	case "script":
		return runScript(rest, out)
	case "validate":
		return runValidate(rest, out)
	case "new":
		return runNew(rest, out)
	case "levels":
		names, err := levels.List()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.Join(names, "\n"))
		return nil
	case "scripts":
		names, err := prefabs.ListScripts()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.Join(names, "\n"))
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func runRender(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	size := fs.Int("size", 1024, "longest side of the output image in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("render: want <in.json> <out.png>")
	}
	p, err := project.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	r, err := render.New()
	if err != nil {
		return err
	}
	f, err := os.Create(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := r.WritePNG(f, p, *size); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Fprintf(out, "wrote %s\n", fs.Arg(1))
	return nil
}

type paramFlag map[string]string

func (p paramFlag) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (p paramFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("param %q: want key=value", s)
	}
	p[strings.TrimSpace(k)] = v
	return nil
}

func runScript(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("script", flag.ContinueOnError)
	params := paramFlag{}
	fs.Var(params, "param", "script parameter as key=value (repeatable)")
	timeout := fs.Duration("timeout", 10*time.Second, "abort the script after this long")
	actor := fs.String("actor", "stagetool", "actor recorded in lastUpdatedBy")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return errors.New("script: want <in.json> <script.tengo> <out.json>")
	}
	p, err := project.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	store := project.NewStore(*actor, p)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := script.New(store).RunFile(ctx, fs.Arg(1), params)
	if err != nil {
		return err
	}
	data, err := store.Export()
	if err != nil {
		return err
	}
	if _, err := project.WriteFile(filepath.Dir(fs.Arg(2)), data, filepath.Base(fs.Arg(2))); err != nil {
		return err
	}
	fmt.Fprintf(out, "placed %d, moved %d, removed %d; wrote %s\n", res.Placed, res.Moved, res.Removed, fs.Arg(2))
	return nil
}

func runValidate(args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("validate: want <in.json>")
	}
	p, err := project.ReadFile(args[0])
	if err != nil {
		return err
	}
	dangling := 0
	for _, e := range p.Entities {
		if _, ok := p.Prefab(e.PrefabID); !ok {
			dangling++
			fmt.Fprintf(out, "warning: entity %s uses unknown prefab %q\n", e.ID, e.PrefabID)
		}
	}
	fmt.Fprintf(out, "%s: %q %gx%g, %d prefabs, %d entities, %d dangling\n",
		args[0], p.Name, p.Width, p.Height, len(p.Prefabs), len(p.Entities), dangling)
	return nil
}

func runNew(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	from := fs.String("from", "", "start from a bundled level instead of an empty stage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 4 {
		return errors.New("new: want <name> <width> <height> <out.json>")
	}
	w, err := strconv.ParseFloat(fs.Arg(1), 64)
	if err != nil {
		return fmt.Errorf("new: width: %w", err)
	}
	h, err := strconv.ParseFloat(fs.Arg(2), 64)
	if err != nil {
		return fmt.Errorf("new: height: %w", err)
	}
	catalog, err := prefabs.LoadCatalog()
	if err != nil {
		return err
	}

	p := project.NewProject(fs.Arg(0), w, h, catalog)
	if *from != "" {
		base, err := levels.LoadProjectFromFS(*from)
		if err != nil {
			return err
		}
		base.Name = p.Name
		base.Width, base.Height = p.Width, p.Height
		base.Prefabs = append(base.Prefabs, prefabs.Merge(base, catalog)...)
		p = base
	}
	store := project.NewStore("stagetool", project.Project{})
	store.Replace(p)
	data, err := store.Export()
	if err != nil {
		return err
	}
	path, err := project.WriteFile(filepath.Dir(fs.Arg(3)), data, filepath.Base(fs.Arg(3)))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}
