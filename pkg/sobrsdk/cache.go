package sobrsdk

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileCache stores the last good response body per request key so reads
// keep working while the server is unreachable. One JSON file per key.
type fileCache struct {
	dir string
	mu  sync.Mutex
}

type cacheEntry struct {
	StoredAt time.Time       `json:"stored_at"`
	Body     json.RawMessage `json:"body"`
}

func newFileCache(dir string) (*fileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &fileCache{dir: dir}, nil
}

func (c *fileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:16])+".json")
}

func (c *fileCache) put(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{StoredAt: time.Now().UTC(), Body: body}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return
	}
	_ = os.Rename(tmp, c.path(key))
}

func (c *fileCache) get(key string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, time.Time{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, time.Time{}, false
	}
	return entry.Body, entry.StoredAt, true
}
