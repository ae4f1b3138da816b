// Package cache implements the Block Cache Engine (C1): a two-region
// write-back cache — a pinned metadata region and an LRU data region — over
// a storage.Adapter-backed disk image, serialized by one mutex.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/errors"
	"github.com/demyanenko-d/floppyemu/storage"
)

const pinnedBlocks = (fe.MaxMetadataSectors + fe.SectorsPerBlock - 1) / fe.SectorsPerBlock

// Cache is the handle to the two-region sector cache. The zero value is not
// usable; construct one with New.
type Cache struct {
	mu sync.Mutex

	pinned *region
	data   *region

	storage         storage.Adapter
	now             func() uint64
	metadataSectors uint32 // 0 means "no geometry published yet", treated as MaxMetadataSectors
	totalSectors    LBA

	hits   atomic.Uint32
	misses atomic.Uint32
}

// New creates a Cache with totalBlocks blocks of backing storage and a
// source of monotonic access ticks. totalBlocks must be large enough to
// hold the pinned metadata region (5 blocks, enough for the largest
// supported geometry's 33 metadata sectors) plus at least one data block.
func New(totalBlocks int, adapter storage.Adapter, now func() uint64) *Cache {
	if totalBlocks <= pinnedBlocks {
		totalBlocks = pinnedBlocks + 1
	}
	return &Cache{
		pinned:  newRegion(pinnedBlocks, true),
		data:    newRegion(totalBlocks-pinnedBlocks, false),
		storage: adapter,
		now:     now,
	}
}

// Configure publishes the geometry that governs region selection and the
// fill-clipping boundary. It does not touch cache contents; callers reset
// the cache separately (the Image Lifecycle Manager always calls Reset
// before Configure when starting a new mount).
func (c *Cache) Configure(metadataSectors uint32, totalSectors LBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadataSectors = metadataSectors
	c.totalSectors = totalSectors
}

func (c *Cache) metadataBoundary() LBA {
	if c.metadataSectors == 0 {
		return fe.MaxMetadataSectors
	}
	return LBA(c.metadataSectors)
}

// regionFor implements the partition invariant: every LBA resolves to
// exactly one region, recomputed on every call (no per-block marker).
func (c *Cache) regionFor(s LBA) *region {
	if s < c.metadataBoundary() {
		return c.pinned
	}
	return c.data
}

// ReadSector fills out (which must be exactly SectorSize bytes) with the
// contents of sector s.
func (c *Cache) ReadSector(s LBA, out []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.resolve(s)
	if err != nil {
		return err
	}

	offset := uint32(s-b.startSector) * fe.SectorSize
	copy(out[:fe.SectorSize], b.data[offset:offset+fe.SectorSize])
	return nil
}

// WriteSector writes in (exactly SectorSize bytes) into sector s, marking
// the owning block dirty.
func (c *Cache) WriteSector(s LBA, in []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.resolve(s)
	if err != nil {
		return err
	}

	offset := uint32(s-b.startSector) * fe.SectorSize
	copy(b.data[offset:offset+fe.SectorSize], in[:fe.SectorSize])
	b.dirty = true
	b.lastAccess = c.now()
	return nil
}

// resolve returns the block covering s, filling it from storage on a miss.
// Must be called with c.mu held.
func (c *Cache) resolve(s LBA) (*block, error) {
	r := c.regionFor(s)
	now := c.now()

	if b, ok := r.lookup(s, now); ok {
		incrSaturating(&c.hits)
		return b, nil
	}

	incrSaturating(&c.misses)
	victim := r.selectVictim()
	if victim.valid && victim.dirty {
		if err := c.writeBack(victim); err != nil {
			// Victim stays dirty and valid; caller retries on next access.
			return nil, err
		}
	}

	if err := c.fill(victim, s.BlockStart()); err != nil {
		victim.reset()
		return nil, err
	}

	victim.lastAccess = now
	return victim, nil
}

func (c *Cache) fill(b *block, start LBA) error {
	n, err := storage.ReadSectors(c.storage, start, fe.SectorsPerBlock, b.data[:])
	if err != nil {
		return err
	}
	_ = n // a short read at end-of-image is fine; those bytes are never served
	b.startSector = start
	b.valid = true
	b.dirty = false
	return nil
}

func (c *Cache) writeBack(b *block) error {
	if err := storage.WriteSectors(c.storage, b.startSector, fe.SectorsPerBlock, b.data[:]); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

// FlushAll persists every dirty block in both regions. It attempts every
// dirty block even if some fail, aggregating failures; on success (nil
// error) no block remains dirty.
func (c *Cache) FlushAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result *multierror.Error
	for _, r := range []*region{c.pinned, c.data} {
		for i := range r.blocks {
			b := &r.blocks[i]
			if b.valid && b.dirty {
				if err := c.writeBack(b); err != nil {
					result = multierror.Append(result, err)
				}
			}
		}
	}
	if result != nil {
		return errors.ErrUnderlyingIO.WrapError(result.ErrorOrNil())
	}
	return nil
}

// Reset invalidates every block in both regions without flushing. Callers
// that want dirty data preserved must call FlushAll first.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned.reset()
	c.data.reset()
}

// Hits returns the number of cache hits since the last ResetStats. Reset does
// not touch the counters.
func (c *Cache) Hits() uint32 { return c.hits.Load() }

// Misses returns the number of cache misses since the last ResetStats.
func (c *Cache) Misses() uint32 { return c.misses.Load() }

// ResetStats zeroes the hit/miss counters. Called by the lifecycle manager
// at the start of every Load.
func (c *Cache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
}

func incrSaturating(counter *atomic.Uint32) {
	for {
		cur := counter.Load()
		if cur == ^uint32(0) {
			return
		}
		if counter.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}
