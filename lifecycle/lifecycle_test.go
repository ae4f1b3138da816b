package lifecycle_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/cache"
	ferrors "github.com/demyanenko-d/floppyemu/errors"
	"github.com/demyanenko-d/floppyemu/lifecycle"
	"github.com/demyanenko-d/floppyemu/storage"
)

func tickSource() func() uint64 {
	var n uint64
	return func() uint64 {
		n++
		return n
	}
}

func newManager(totalBlocks int, image []byte) (*lifecycle.Manager, storage.Adapter) {
	adapter := storage.NewMemoryAdapter(image)
	c := cache.New(totalBlocks, adapter, tickSource())
	return lifecycle.New(c, adapter, nil, nil), adapter
}

func imageOfSize(bytesLen int) []byte {
	data := make([]byte, bytesLen)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestMountReadEject(t *testing.T) {
	image := imageOfSize(1474560) // 1.44M, DOS622.IMG
	m, adapter := newManager(40, image)

	require.NoError(t, m.Load("DOS622.IMG"))
	assert.Equal(t, fe.StatusReady, m.Status())

	snap := m.Snapshot()
	assert.EqualValues(t, 2880, snap.TotalSectors)
	assert.Equal(t, uint32(16), snap.LoadedKB)
	assert.Equal(t, uint32(16), snap.TotalFATKB)

	out := make([]byte, fe.SectorSize)
	require.NoError(t, m.Cache().ReadSector(0, out))
	assert.Equal(t, image[:fe.SectorSize], out)

	require.NoError(t, m.Eject())
	assert.Equal(t, fe.StatusNoImage, m.Status())

	_, err := adapter.Size()
	assert.ErrorIs(t, err, ferrors.ErrClosed)
}

func TestWriteThenRereadAcrossEject(t *testing.T) {
	image := imageOfSize(1474560)
	m, adapter := newManager(40, image)
	require.NoError(t, m.Load("DOS622.IMG"))

	pattern := bytes.Repeat([]byte{0xA5}, fe.SectorSize)
	c := m.Cache()
	require.NoError(t, c.WriteSector(100, pattern))

	out := make([]byte, fe.SectorSize)
	require.NoError(t, c.ReadSector(100, out))
	assert.Equal(t, pattern, out)

	require.NoError(t, m.Eject())

	// Eject closed the adapter; reopen the same image before reading it back.
	require.NoError(t, adapter.Open("DOS622.IMG"))
	raw := make([]byte, fe.SectorSize)
	require.NoError(t, adapter.ReadAt(100*fe.SectorSize, raw))
	assert.Equal(t, pattern, raw)
}

func TestEjectIdempotence(t *testing.T) {
	image := imageOfSize(1474560)
	m, _ := newManager(40, image)
	require.NoError(t, m.Load("DOS622.IMG"))

	require.NoError(t, m.Eject())
	require.NoError(t, m.Eject())
	assert.Equal(t, fe.StatusNoImage, m.Status())
}

func TestUnknownFormat(t *testing.T) {
	image := imageOfSize(1000000)
	m, _ := newManager(40, image)

	err := m.Load("mystery.img")
	require.Error(t, err)
	assert.Equal(t, fe.StatusError, m.Status())
	assert.Contains(t, m.Snapshot().ErrorMessage, "1000000")

	m.Acknowledge()
	assert.Equal(t, fe.StatusNoImage, m.Status())
}

func TestGeometryDeterminism(t *testing.T) {
	for _, size := range []int64{737280, 737280 - 512, 737280 + 512, 1228800, 1474560} {
		g1, ok1 := fe.DetectGeometry(size)
		g2, ok2 := fe.DetectGeometry(size)
		require.Equal(t, ok1, ok2)
		if ok1 {
			assert.Equal(t, g1, g2)
		}
	}

	_, ok := fe.DetectGeometry(1000000)
	assert.False(t, ok)
}

func TestMountPublishes720KGeometry(t *testing.T) {
	image := imageOfSize(737280) // 720K, 1440 sectors
	m, _ := newManager(40, image)
	require.NoError(t, m.Load("a.img"))

	snap := m.Snapshot()
	assert.EqualValues(t, 1440, snap.TotalSectors)
}
