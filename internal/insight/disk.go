package insight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Increment when diskPayload changes shape.
const diskSchemaVersion uint16 = 1

// DiskCache stores insights as msgpack files, one per key digest.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type diskPayload struct {
	Schema  uint16  `msgpack:"schema"`
	Key     Key     `msgpack:"key"`
	Insight Insight `msgpack:"insight"`
}

// OpenDiskCache creates dir if needed and returns a cache rooted there.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		return nil, errors.New("insight cache dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create insight cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) pathFor(digest string) string {
	return filepath.Join(c.dir, digest[:2], digest+".mp")
}

// Get returns the stored insight. Entries written by another schema version
// or for a different key under the same digest read as misses.
func (c *DiskCache) Get(key Key) (Insight, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key.Digest()))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Insight{}, false, nil
		}
		return Insight{}, false, err
	}
	defer func() {
		// Best-effort close.
		_ = f.Close()
	}()

	var p diskPayload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return Insight{}, false, fmt.Errorf("decode insight: %w", err)
	}
	if p.Schema != diskSchemaVersion || p.Key != key {
		return Insight{}, false, nil
	}
	return p.Insight, true, nil
}

// Put writes the insight atomically through a temp file and rename.
func (c *DiskCache) Put(key Key, in Insight) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key.Digest())
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		// Best-effort cleanup; the rename already moved it on success.
		_ = os.Remove(tmp)
	}()

	if err := msgpack.NewEncoder(f).Encode(&diskPayload{Schema: diskSchemaVersion, Key: key, Insight: in}); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode insight: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(c.dir, 0o755)
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
