// Package storage persists opaque blobs under string keys. The editor keeps
// its autosave here and the relay keeps the last snapshot of every session.
package storage

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("storage: not found")

// Store is a durable key-value blob store.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Close() error
}

const (
	KindMemory = "memory"
	KindFile   = "file"
	KindBolt   = "bolt"
	KindSQLite = "sqlite"
	KindRedis  = "redis"
)

// Kinds lists the backends Open understands.
func Kinds() []string {
	return []string{KindMemory, KindFile, KindBolt, KindSQLite, KindRedis}
}

// ValidKind reports whether kind names a backend.
func ValidKind(kind string) bool {
	for _, k := range Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Open selects a backend. dsn is a directory for file, a database path for
// bolt and sqlite, and a redis:// URL for redis. It is ignored for memory.
func Open(kind, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindMemory:
		s = NewMemoryStore()
	case KindFile, "":
		s, err = NewFileStore(dsn)
	case KindBolt:
		s, err = OpenBolt(dsn)
	case KindSQLite:
		s, err = OpenSQLite(dsn)
	case KindRedis:
		s, err = OpenRedis(dsn)
	default:
		return nil, fmt.Errorf("storage: unknown kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SafeKey replaces every character outside [A-Za-z0-9._-] with '_'. When
// anything was replaced, '~' and a hash of the original key are appended so
// distinct keys stay distinct. An empty key becomes fallback.
func SafeKey(key, fallback string) string {
	if key == "" {
		return fallback
	}
	var b strings.Builder
	replaced := false
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
			replaced = true
		}
	}
	if replaced {
		h := fnv.New32a()
		h.Write([]byte(key))
		fmt.Fprintf(&b, "~%08x", h.Sum32())
	}
	return b.String()
}

func checkKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("storage: key is required")
	}
	return nil
}
