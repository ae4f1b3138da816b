package cache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/storage"
)

// tickSource gives deterministic, strictly increasing access ticks so LRU
// ordering in tests doesn't depend on wall-clock timing.
type tickSource struct{ n uint64 }

func (t *tickSource) next() func() uint64 {
	return func() uint64 {
		t.n++
		return t.n
	}
}

func newTestImage(totalSectors int) []byte {
	data := make([]byte, totalSectors*fe.SectorSize)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func newTestCache(t *testing.T, totalBlocks int, image []byte) (*Cache, storage.Adapter) {
	t.Helper()
	adapter := storage.NewMemoryAdapter(image)
	require.NoError(t, adapter.Open("test.img"))

	ticks := &tickSource{}
	c := New(totalBlocks, adapter, ticks.next())
	c.Configure(fe.MaxMetadataSectors, fe.LBA(len(image)/fe.SectorSize))
	return c, adapter
}

func TestReadSectorReturnsUnderlyingBytes(t *testing.T) {
	image := newTestImage(2880)
	c, _ := newTestCache(t, 20, image)

	out := make([]byte, fe.SectorSize)
	require.NoError(t, c.ReadSector(0, out))
	assert.Equal(t, image[:fe.SectorSize], out)
}

func TestWriteReadCoherence(t *testing.T) {
	image := newTestImage(2880)
	c, _ := newTestCache(t, 20, image)

	pattern := bytes.Repeat([]byte{0xA5}, fe.SectorSize)
	require.NoError(t, c.WriteSector(100, pattern))

	out := make([]byte, fe.SectorSize)
	require.NoError(t, c.ReadSector(100, out))
	assert.Equal(t, pattern, out)
}

func TestFlushCompleteness(t *testing.T) {
	image := newTestImage(2880)
	c, adapter := newTestCache(t, 20, image)

	pattern := bytes.Repeat([]byte{0x5A}, fe.SectorSize)
	require.NoError(t, c.WriteSector(500, pattern))

	require.NoError(t, c.FlushAll())
	assert.Equal(t, 0, c.pinned.dirtyCount()+c.data.dirtyCount())

	// Read the underlying bytes back through the adapter and confirm the write landed.
	raw := make([]byte, fe.SectorSize)
	require.NoError(t, adapter.ReadAt(500*fe.SectorSize, raw))
	assert.Equal(t, pattern, raw)
}

func TestLRUEvictionWithTwoDataBlocks(t *testing.T) {
	image := newTestImage(2880)
	// pinnedBlocks (5) + 2 data blocks = 7 total blocks.
	c, _ := newTestCache(t, pinnedBlocks+2, image)

	out := make([]byte, fe.SectorSize)
	require.NoError(t, c.ReadSector(200, out)) // block A
	require.NoError(t, c.ReadSector(300, out)) // block B
	require.NoError(t, c.ReadSector(400, out)) // block C, evicts A

	hitsBefore := c.Hits()
	require.NoError(t, c.ReadSector(300, out)) // B must still be cached
	assert.Equal(t, hitsBefore+1, c.Hits())

	missesBeforeA := c.Misses()
	require.NoError(t, c.ReadSector(200, out)) // A must miss again
	assert.Equal(t, missesBeforeA+1, c.Misses())
}

func TestBoundedOccupancyAndPartitionInvariant(t *testing.T) {
	image := newTestImage(2880)
	c, _ := newTestCache(t, pinnedBlocks+2, image)
	c.Configure(33, 2880)

	out := make([]byte, fe.SectorSize)
	for _, s := range []fe.LBA{0, 16, 40, 100, 200, 300, 400, 500} {
		require.NoError(t, c.ReadSector(s, out))
	}

	assert.LessOrEqual(t, c.pinned.validCount(), len(c.pinned.blocks))
	assert.LessOrEqual(t, c.data.validCount(), len(c.data.blocks))

	// LBAs below metadataSectors must resolve in the pinned region only.
	_, hitPinned := c.pinned.lookup(0, 0)
	_, hitData := c.data.lookup(0, 0)
	assert.True(t, hitPinned)
	assert.False(t, hitData)

	// LBAs at/after metadataSectors must resolve in the data region only.
	_, hitPinned = c.pinned.lookup(500, 0)
	_, hitData = c.data.lookup(500, 0)
	assert.False(t, hitPinned)
	assert.True(t, hitData)
}

func TestAtMostOneValidPerStartSector(t *testing.T) {
	image := newTestImage(2880)
	c, _ := newTestCache(t, pinnedBlocks+4, image)

	out := make([]byte, fe.SectorSize)
	require.NoError(t, c.ReadSector(100, out))
	require.NoError(t, c.ReadSector(100, out)) // re-read same block, must be a hit not a dup slot

	seen := map[fe.LBA]int{}
	for i := range c.data.blocks {
		b := &c.data.blocks[i]
		if b.valid {
			seen[b.startSector]++
		}
	}
	for start, count := range seen {
		assert.Equalf(t, 1, count, "start sector %d occupies %d slots", start, count)
	}
}

func TestMonotoneCounters(t *testing.T) {
	image := newTestImage(2880)
	c, _ := newTestCache(t, 20, image)

	out := make([]byte, fe.SectorSize)
	var lastHits, lastMisses uint32
	for _, s := range []fe.LBA{0, 0, 8, 8, 100, 100} {
		require.NoError(t, c.ReadSector(s, out))
		assert.GreaterOrEqual(t, c.Hits(), lastHits)
		assert.GreaterOrEqual(t, c.Misses(), lastMisses)
		lastHits, lastMisses = c.Hits(), c.Misses()
	}
	assert.Greater(t, lastHits+lastMisses, uint32(0))
}

func TestResetInvalidatesEverything(t *testing.T) {
	image := newTestImage(2880)
	c, _ := newTestCache(t, 20, image)

	out := make([]byte, fe.SectorSize)
	require.NoError(t, c.ReadSector(0, out))
	require.NoError(t, c.ReadSector(500, out))

	c.Reset()
	assert.Equal(t, 0, c.pinned.validCount())
	assert.Equal(t, 0, c.data.validCount())
}

func TestDirtyVictimIsWrittenBackBeforeReuse(t *testing.T) {
	image := newTestImage(2880)
	c, adapter := newTestCache(t, pinnedBlocks+2, image)

	pattern := bytes.Repeat([]byte{0x11}, fe.SectorSize)
	require.NoError(t, c.WriteSector(200, pattern)) // dirties block A in data region
	require.NoError(t, c.ReadSector(300, make([]byte, fe.SectorSize)))
	require.NoError(t, c.ReadSector(400, make([]byte, fe.SectorSize))) // evicts A, must flush it first

	raw := make([]byte, fe.SectorSize)
	require.NoError(t, adapter.ReadAt(200*fe.SectorSize, raw))
	assert.Equal(t, pattern, raw)
}
