package cache

import fe "github.com/demyanenko-d/floppyemu"

// block is the single cache-block type shared by both the pinned metadata
// region and the LRU data region (DESIGN NOTE: "Pinned vs LRU regions as one
// type" — one block layout, two differently sized arrays, and a
// region-selection predicate, rather than parallel copies of the lookup and
// eviction code).
type block struct {
	startSector LBA
	lastAccess  uint64
	valid       bool
	dirty       bool
	data        [fe.BlockSize]byte
}

// LBA is an alias of floppyemu.LBA, kept local so the rest of this package
// doesn't need the floppyemu import just to spell out sector addresses.
type LBA = fe.LBA

func (b *block) covers(s LBA) bool {
	return b.valid && b.startSector == s.BlockStart()
}

func (b *block) reset() {
	b.valid = false
	b.dirty = false
}
