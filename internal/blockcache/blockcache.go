// Package blockcache caches inflator.Checkpoint values keyed by a stream
// identity and byte offset, so a random-access reader over a long DEFLATE
// stream can replay forward from the nearest earlier checkpoint instead
// of from the start of the stream every time. It plays the same role the
// teacher's internal/flate.Reader checkpoint slice played, except bounded
// by an admission-counted LRU instead of kept forever.
package blockcache

import (
	"fmt"
	"sync"

	tlfu "github.com/dgryski/go-tinylfu"

	"github.com/cespare/xxhash/v2"

	"github.com/Jpn666/jdeflate/inflator"
)

// Key identifies one checkpoint: a stream and a byte offset into it.
// StreamID is caller-assigned (a dictstore dictionary ID, a file handle
// number, anything stable across the process) so the same cache can back
// several open streams at once.
type Key struct {
	StreamID uint64
	Offset   int64
}

func (k Key) hash() uint64 {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(k.StreamID >> (8 * i))
		buf[8+i] = byte(k.Offset >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

func (k Key) cacheKey() string {
	return fmt.Sprintf("%016x", k.hash())
}

// Cache is a concurrency-safe, size-bounded checkpoint cache. tinylfu's
// own admission policy is not goroutine-safe, so every access goes
// through a mutex — a plain lock is enough since this is the only piece
// of shared mutable state in the module.
type Cache struct {
	mu sync.Mutex
	t  *tlfu.T
}

// New returns a Cache admitting up to size checkpoints, sampling samples
// candidates per eviction decision (tinylfu's usual window/sample split).
func New(size, samples int) *Cache {
	return &Cache{t: tlfu.New(size, samples)}
}

// Put records a checkpoint, possibly evicting a colder one.
func (c *Cache) Put(key Key, cp inflator.Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Add(key.cacheKey(), cp)
}

// Get looks up the checkpoint at exactly key, if still resident.
func (c *Cache) Get(key Key) (inflator.Checkpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.t.Get(key.cacheKey())
	if !ok {
		return inflator.Checkpoint{}, false
	}
	cp, ok := v.(inflator.Checkpoint)
	return cp, ok
}

// Nearest scans the offsets a caller has previously Put for streamID and
// returns the checkpoint with the greatest offset <= target, or false if
// none qualify (including if the nearest one has since been evicted).
// offsets may be in any order (Index.Offsets returns them in the order
// they were recorded); every entry is scanned, and blockcache itself holds
// no ordering, only the LRU payload.
func Nearest(c *Cache, streamID uint64, offsets []int64, target int64) (inflator.Checkpoint, int64, bool) {
	best := int64(-1)
	for _, off := range offsets {
		if off <= target && off > best {
			best = off
		}
	}
	if best < 0 {
		return inflator.Checkpoint{}, 0, false
	}
	cp, ok := c.Get(Key{StreamID: streamID, Offset: best})
	return cp, best, ok
}

// Index tracks which offsets a stream has ever had a checkpoint taken at,
// independent of whether the cache still holds it; Nearest needs this
// list to find a starting point even after eviction (a miss there simply
// means falling back to an earlier offset or to the start of the stream).
type Index struct {
	mu      sync.Mutex
	offsets map[uint64][]int64
}

func NewIndex() *Index {
	return &Index{offsets: make(map[uint64][]int64)}
}

func (ix *Index) Record(streamID uint64, offset int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	list := ix.offsets[streamID]
	for _, o := range list {
		if o == offset {
			return
		}
	}
	ix.offsets[streamID] = append(list, offset)
}

func (ix *Index) Offsets(streamID uint64) []int64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]int64, len(ix.offsets[streamID]))
	copy(out, ix.offsets[streamID])
	return out
}
