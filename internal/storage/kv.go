// Package storage implements the durable key-value store behind the
// persistence gateway. Values are opaque bytes; the gateway owns encoding.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// KV is a flat durable key-value store.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Open creates the backend named by kind with its files under dir.
func Open(kind, dir string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendSQLite:
		return OpenSQLite(filepath.Join(dir, "flyvpn.db"))
	case BackendBolt:
		return OpenBolt(filepath.Join(dir, "flyvpn.bolt"))
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", kind)
	}
}
