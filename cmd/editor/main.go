package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/stagecraft/collab"
	"github.com/milk9111/stagecraft/config"
	"github.com/milk9111/stagecraft/levels"
	"github.com/milk9111/stagecraft/prefabs"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/storage"
	"github.com/milk9111/stagecraft/workbench"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	projectArg := flag.String("project", "", "project JSON file, saved project name or bundled level to open")
	sessionID := flag.String("session", "", "relay session id (overrides config)")
	relayURL := flag.String("relay", "", "relay websocket URL (overrides config)")
	actor := flag.String("actor", "", "collaborator id (overrides config)")
	connect := flag.Bool("connect", false, "connect to the relay on start")
	flag.Parse()

	log.Println("Editor starting...")
	cfg, err := config.LoadEditor(*configPath)
	if err != nil {
		log.Fatalf("editor: %v", err)
	}
	cfg = cfg.With(config.Overrides{Actor: *actor, RelayURL: *relayURL, SessionID: *sessionID})
	prefabs.DiskDir = cfg.PrefabDir

	if cfg.Store.Kind == storage.KindBolt || cfg.Store.Kind == storage.KindSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.DSN), 0755); err != nil {
			log.Fatalf("editor: %v", err)
		}
	}
	blobs, err := storage.Open(cfg.Store.Kind, cfg.Store.DSN)
	if err != nil {
		log.Fatalf("editor: open %s store: %v", cfg.Store.Kind, err)
	}
	defer blobs.Close()

	catalog, err := prefabs.LoadCatalog()
	if err != nil {
		log.Printf("editor: catalog: %v", err)
	}
	initial := openProject(blobs, *projectArg, catalog)
	initial.Prefabs = append(initial.Prefabs, prefabs.Merge(initial, catalog)...)

	wb := workbench.New(cfg, initial, blobs, collab.WebsocketDialer{})

	var watcher *prefabs.CatalogWatcher
	if info, err := os.Stat(cfg.PrefabDir); err == nil && info.IsDir() {
		watcher, err = prefabs.WatchCatalog(cfg.PrefabDir)
		if err != nil {
			log.Printf("editor: watch %s: %v", cfg.PrefabDir, err)
		}
	}

	editor, err := NewEditor(wb, watcher, openClipboard())
	if err != nil {
		log.Fatalf("editor: %v", err)
	}
	defer editor.Close()

	if *connect {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := wb.ToggleConnection(ctx); err != nil {
			log.Printf("editor: %v", err)
		}
		cancel()
	}

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("Stagecraft - " + wb.Store.Project().Name)

	if err := ebiten.RunGame(editor); err != nil {
		log.Printf("editor: %v", err)
	}
}

// openProject resolves -project as a file on disk, then a saved project,
// then a bundled level. Anything else starts an empty stage.
func openProject(blobs storage.Store, arg string, catalog []project.Prefab) project.Project {
	if arg == "" {
		return project.NewProject("Untitled", 1600, 900, catalog)
	}
	if _, err := os.Stat(arg); err == nil {
		p, err := project.ReadFile(arg)
		if err == nil {
			return p
		}
		log.Printf("editor: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if data, err := blobs.Load(ctx, workbench.ProjectKey(arg)); err == nil {
		if p, err := project.Decode(data); err == nil {
			return p
		}
	}
	if p, err := levels.LoadProjectFromFS(arg); err == nil {
		return p
	}
	log.Printf("editor: no project %q, starting empty", arg)
	return project.NewProject(arg, 1600, 900, catalog)
}
