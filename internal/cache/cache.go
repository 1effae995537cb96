// Package cache is a content-addressed on-disk store for per-file analysis
// artifacts. Entries are keyed by a hash over a version tag, the file path and
// the file content, so stale entries are never read back.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
)

// EnvDir overrides the cache location.
const EnvDir = "ANCHOR_SENTINEL_CACHE"

var (
	mu       sync.RWMutex
	override string
)

// SetDir redirects the cache to dir. An empty dir restores the default.
func SetDir(dir string) {
	mu.Lock()
	override = dir
	mu.Unlock()
}

// Dir returns the cache directory path, creating it if needed.
func Dir() (string, error) {
	mu.RLock()
	dir := override
	mu.RUnlock()
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".anchor-sentinel", "cache")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Key computes an entry name from its parts (version tag, path, content).
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func Load(key string) ([]byte, bool) {
	dir, err := Dir()
	if err != nil {
		return nil, false
	}
	b, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		return nil, false
	}
	return b, true
}

// Store writes data under key. The write goes through a temp file so that
// concurrent readers never observe a partial entry.
func Store(key string, data []byte) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, key+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, key))
}
