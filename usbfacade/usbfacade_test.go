package usbfacade_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/cache"
	"github.com/demyanenko-d/floppyemu/errors"
	"github.com/demyanenko-d/floppyemu/lifecycle"
	"github.com/demyanenko-d/floppyemu/usbfacade"
)

// catalogAdapter is a storage.Adapter fake backed by a set of named,
// in-memory images, so a single Manager can mount one named image and then
// another of a different geometry, the way swapping the SD card under a
// FileAdapter would.
type catalogAdapter struct {
	images map[string][]byte
	cur    []byte
	opened bool
}

func newCatalogAdapter(images map[string][]byte) *catalogAdapter {
	return &catalogAdapter{images: images}
}

func (a *catalogAdapter) Open(path string) error {
	data, ok := a.images[path]
	if !ok {
		return fmt.Errorf("no such image: %s", path)
	}
	a.cur = data
	a.opened = true
	return nil
}

func (a *catalogAdapter) Size() (int64, error) {
	if !a.opened {
		return 0, errors.ErrClosed
	}
	return int64(len(a.cur)), nil
}

func (a *catalogAdapter) ReadAt(offset int64, buf []byte) error {
	if !a.opened {
		return errors.ErrClosed
	}
	copy(buf, a.cur[offset:])
	return nil
}

func (a *catalogAdapter) WriteAt(offset int64, buf []byte) error {
	if !a.opened {
		return errors.ErrClosed
	}
	copy(a.cur[offset:], buf)
	return nil
}

func (a *catalogAdapter) Sync() error { return nil }

func (a *catalogAdapter) Close() error {
	a.opened = false
	return nil
}

func tickSource() func() uint64 {
	var n uint64
	return func() uint64 {
		n++
		return n
	}
}

// TestMediaChangeForcesUnitAttention reproduces mounting a 720K image, then
// swapping it for a 1.44M image without the host ever polling unit_ready in
// between: the host still must learn of the change before it trusts the
// new capacity.
func TestMediaChangeForcesUnitAttention(t *testing.T) {
	adapter := newCatalogAdapter(map[string][]byte{
		"a.img": make([]byte, 737280),  // 720K
		"b.img": make([]byte, 1474560), // 1.44M
	})
	mgr := lifecycle.New(cache.New(40, adapter, tickSource()), adapter, nil, nil)
	f := usbfacade.New(mgr)

	require.NoError(t, mgr.Load("a.img"))

	ready, sense := f.UnitReady()
	assert.True(t, ready)
	assert.Nil(t, sense)

	total, perSector := f.Capacity()
	assert.EqualValues(t, 1440, total)
	assert.EqualValues(t, fe.SectorSize, perSector)

	require.NoError(t, mgr.Eject())
	require.NoError(t, mgr.Load("b.img"))

	ready, sense = f.UnitReady()
	assert.False(t, ready)
	require.NotNil(t, sense)
	assert.Equal(t, usbfacade.SenseUnitAttention, *sense)

	ready, sense = f.UnitReady()
	assert.True(t, ready)
	assert.Nil(t, sense)

	total, _ = f.Capacity()
	assert.EqualValues(t, 2880, total)
}

func TestOutOfRangeReadRejected(t *testing.T) {
	adapter := newCatalogAdapter(map[string][]byte{
		"a.img": make([]byte, 737280), // 720K, 1440 sectors
	})
	mgr := lifecycle.New(cache.New(40, adapter, tickSource()), adapter, nil, nil)
	require.NoError(t, mgr.Load("a.img"))
	f := usbfacade.New(mgr)

	buf := make([]byte, fe.SectorSize)
	err := f.Read10(1440, buf)
	assert.ErrorIs(t, err, errors.ErrOutOfRange)

	require.NoError(t, f.Read10(1439, buf))
}

func TestInquiryIsConstant(t *testing.T) {
	adapter := newCatalogAdapter(map[string][]byte{"a.img": make([]byte, 737280)})
	mgr := lifecycle.New(cache.New(40, adapter, tickSource()), adapter, nil, nil)
	f := usbfacade.New(mgr)

	vendor, product, rev := f.Inquiry()
	assert.Equal(t, usbfacade.VendorID, vendor)
	assert.Equal(t, usbfacade.ProductID, product)
	assert.Equal(t, usbfacade.ProductRev, rev)
}
