// Package storage is the narrow contract over a disk image file (C4 in the
// design): open, size, read/write one region, sync, close. It knows nothing
// about sectors, caching, or geometry — that's the cache and lifecycle
// packages' job. All offsets are byte offsets within the image.
package storage

import (
	"fmt"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/errors"
)

// Adapter is the contract every storage backend implements. It is
// synchronous and blocking; callers are responsible for serializing access
// (in this repo, that's the cache's mutex).
type Adapter interface {
	// Open opens the image at path for reading and writing.
	Open(path string) error
	// Size returns the current size of the open image, in bytes.
	Size() (int64, error)
	// ReadAt fills buf from the image starting at the given byte offset.
	ReadAt(offset int64, buf []byte) error
	// WriteAt writes buf into the image starting at the given byte offset.
	WriteAt(offset int64, buf []byte) error
	// Sync persists any buffered writes to the backing medium.
	Sync() error
	// Close releases the open image handle. Close is idempotent.
	Close() error
}

// ReadSectors reads count sectors starting at start from adapter into buf,
// which must be at least count*SectorSize bytes. If the read would cross
// the end of the image, it stops early and leaves the remainder of buf
// untouched — callers must already know not to serve past totalSectors.
func ReadSectors(adapter Adapter, start fe.LBA, count uint32, buf []byte) (int, error) {
	size, err := adapter.Size()
	if err != nil {
		return 0, errors.ErrUnderlyingIO.WrapError(err)
	}

	offset := int64(start) * fe.SectorSize
	want := int64(count) * fe.SectorSize
	avail := size - offset
	if avail <= 0 {
		return 0, nil
	}
	if avail < want {
		want = avail
	}

	if err := adapter.ReadAt(offset, buf[:want]); err != nil {
		return 0, errors.ErrUnderlyingIO.WrapError(err)
	}
	return int(want), nil
}

// WriteSectors writes count sectors starting at start from buf into adapter.
func WriteSectors(adapter Adapter, start fe.LBA, count uint32, buf []byte) error {
	offset := int64(start) * fe.SectorSize
	n := int64(count) * fe.SectorSize
	if int64(len(buf)) < n {
		return fmt.Errorf("storage: buffer too small: need %d bytes, have %d", n, len(buf))
	}
	if err := adapter.WriteAt(offset, buf[:n]); err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	return nil
}
