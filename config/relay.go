package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/milk9111/stagecraft/storage"
)

// Relay is the relay server configuration, read from the environment.
type Relay struct {
	Host       string  `env:"HOST"`
	Port       int     `env:"PORT" envDefault:"8765"`
	DataDir    string  `env:"DATA_DIR" envDefault:"relay-data"`
	StoreKind  string  `env:"STORE_KIND" envDefault:"file"`
	StoreDSN   string  `env:"STORE_DSN"`
	RatePerSec float64 `env:"RATE_PER_SEC" envDefault:"50"`
	RateBurst  int     `env:"RATE_BURST" envDefault:"100"`
}

// LoadRelay loads the given .env files (".env" when none are named) if they
// exist, then parses the environment.
func LoadRelay(envFiles ...string) (Relay, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			log.Printf("config: load %s: %v", f, err)
		}
	}

	var cfg Relay
	if err := env.Parse(&cfg); err != nil {
		return Relay{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Relay{}, err
	}
	return cfg, nil
}

func (r Relay) Validate() error {
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("config: PORT must be in 1..65535, got %d", r.Port)
	}
	if !storage.ValidKind(r.StoreKind) {
		return fmt.Errorf("config: unknown STORE_KIND %q (want one of %s)", r.StoreKind, strings.Join(storage.Kinds(), ", "))
	}
	if r.StoreKind == storage.KindRedis && r.StoreDSN == "" {
		return errors.New("config: STORE_DSN is required for redis")
	}
	return nil
}

func (r Relay) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// DSN returns STORE_DSN, or a location under DATA_DIR for the local backends.
func (r Relay) DSN() string {
	if r.StoreDSN != "" {
		return r.StoreDSN
	}
	switch r.StoreKind {
	case storage.KindBolt:
		return filepath.Join(r.DataDir, "relay.db")
	case storage.KindSQLite:
		return filepath.Join(r.DataDir, "relay.sqlite")
	default:
		return r.DataDir
	}
}
