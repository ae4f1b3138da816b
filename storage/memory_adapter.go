package storage

import (
	"io"

	"github.com/xaionaro-go/bytesextra"

	"github.com/demyanenko-d/floppyemu/errors"
)

// MemoryAdapter backs an Adapter with an in-memory byte slice, grounded on
// the teacher's blockcache.WrapSlice. It never touches a real filesystem,
// so the cache and lifecycle tests use it in place of a real SD card image.
type MemoryAdapter struct {
	stream io.ReadWriteSeeker
	size   int64
	opened bool
}

// NewMemoryAdapter wraps data as the backing image. The slice is used
// directly (not copied); writes through the adapter mutate it in place.
func NewMemoryAdapter(data []byte) *MemoryAdapter {
	return &MemoryAdapter{
		stream: bytesextra.NewReadWriteSeeker(data),
		size:   int64(len(data)),
	}
}

// Open marks the adapter open; until then, and again after Close, Size,
// ReadAt and WriteAt return ErrClosed. A MemoryAdapter is always
// backed by the slice it was constructed with, so the path argument is
// ignored.
func (a *MemoryAdapter) Open(path string) error {
	a.opened = true
	return nil
}

func (a *MemoryAdapter) Size() (int64, error) {
	if !a.opened {
		return 0, errors.ErrClosed
	}
	return a.size, nil
}

func (a *MemoryAdapter) ReadAt(offset int64, buf []byte) error {
	if !a.opened {
		return errors.ErrClosed
	}
	if _, err := a.stream.Seek(offset, io.SeekStart); err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	if _, err := io.ReadFull(a.stream, buf); err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	return nil
}

func (a *MemoryAdapter) WriteAt(offset int64, buf []byte) error {
	if !a.opened {
		return errors.ErrClosed
	}
	if _, err := a.stream.Seek(offset, io.SeekStart); err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	if _, err := a.stream.Write(buf); err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	return nil
}

func (a *MemoryAdapter) Sync() error {
	return nil
}

func (a *MemoryAdapter) Close() error {
	a.opened = false
	return nil
}
