package worldscan

import (
	"io/fs"
	"time"

	"github.com/cobaltcrest/anvilctl/internal/anvil"
	"github.com/cobaltcrest/anvilctl/internal/cache"
)

// headerCacheEntry records the file stamp a cached directory decode was derived from, so a
// changed file on disk invalidates the entry without waiting for its TTL to lapse.
type headerCacheEntry struct {
	size    int64
	modTime time.Time
	chunks  []anvil.ChunkPresence
}

// HeaderCache avoids re-opening and re-decoding a region file's 8 KiB header on every scan
// of an otherwise-unchanged world. It wraps the generic TTLCache keyed by the region file's
// path as the scanner found it; entries are additionally checked against the file's current size and mtime before
// being trusted, so a changed file is never served stale.
type HeaderCache struct {
	ttl   time.Duration
	items *cache.TTLCache[string, headerCacheEntry]
}

// NewHeaderCache builds a cache whose entries are considered fresh for ttl, subject to the
// file-stamp check performed on every Get.
func NewHeaderCache(ttl time.Duration) *HeaderCache {
	return &HeaderCache{
		ttl:   ttl,
		items: cache.NewTTLCache[string, headerCacheEntry](),
	}
}

// Get returns the cached per-slot chunk presence for path if an entry exists, has not
// expired, and matches info's current size and modification time.
func (h *HeaderCache) Get(path string, info fs.FileInfo) ([]anvil.ChunkPresence, bool) {
	entry, ok := h.items.Get(path)
	if !ok {
		return nil, false
	}
	if entry.size != info.Size() || !entry.modTime.Equal(info.ModTime()) {
		return nil, false
	}
	return entry.chunks, true
}

// Set records chunks as the decoded per-slot presence for path, stamped with info's
// current size and modification time.
func (h *HeaderCache) Set(path string, info fs.FileInfo, chunks []anvil.ChunkPresence) {
	h.items.Set(path, headerCacheEntry{
		size:    info.Size(),
		modTime: info.ModTime(),
		chunks:  chunks,
	}, h.ttl)
}

// Stats reports how many region-file header decodes this cache has saved (hits) versus
// forced (misses) since it was created. A stamp mismatch against a changed file counts as a
// hit at the underlying TTLCache layer even though HeaderCache.Get reports it as a miss, so
// these numbers track "was an entry present to check" rather than "was it trusted".
func (h *HeaderCache) Stats() (hits, misses int64) {
	return h.items.Stats()
}

// Len reports how many region files currently have a (possibly stale) cached entry.
func (h *HeaderCache) Len() int {
	return h.items.Len()
}
