package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/milk9111/stagecraft/config"
	"github.com/milk9111/stagecraft/relay"
	"github.com/milk9111/stagecraft/storage"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file loaded before the environment is read")
	flag.Parse()

	cfg, err := config.LoadRelay(*envFile)
	if err != nil {
		log.Fatalf("relay: %v", err)
	}

	dsn := cfg.DSN()
	switch cfg.StoreKind {
	case storage.KindBolt, storage.KindSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			log.Fatalf("relay: create data dir: %v", err)
		}
	}
	store, err := storage.Open(cfg.StoreKind, dsn)
	if err != nil {
		log.Fatalf("relay: open %s store: %v", cfg.StoreKind, err)
	}
	defer store.Close()

	hub := relay.NewHub(store, relay.WithRateLimit(cfg.RatePerSec, cfg.RateBurst))
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           hub.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("relay: shutdown: %v", err)
		}
	}()

	log.Printf("relay: listening on %s (store=%s %s)", cfg.Addr(), cfg.StoreKind, dsn)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("relay: %v", err)
	}
	log.Println("relay: stopped")
}
