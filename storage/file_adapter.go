package storage

import (
	"os"

	"github.com/demyanenko-d/floppyemu/errors"
)

// FileAdapter backs an Adapter with a real *os.File — the production
// realization, where the file lives on the SD card's FAT filesystem. The
// SD/SPI command sequencing and the FAT library that exposes this path are
// both external collaborators; FileAdapter only ever sees a path string.
type FileAdapter struct {
	file *os.File
}

// NewFileAdapter returns an unopened FileAdapter.
func NewFileAdapter() *FileAdapter {
	return &FileAdapter{}
}

func (a *FileAdapter) Open(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	a.file = f
	return nil
}

func (a *FileAdapter) Size() (int64, error) {
	info, err := a.file.Stat()
	if err != nil {
		return 0, errors.ErrUnderlyingIO.WrapError(err)
	}
	return info.Size(), nil
}

func (a *FileAdapter) ReadAt(offset int64, buf []byte) error {
	_, err := a.file.ReadAt(buf, offset)
	if err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	return nil
}

func (a *FileAdapter) WriteAt(offset int64, buf []byte) error {
	_, err := a.file.WriteAt(buf, offset)
	if err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	return nil
}

func (a *FileAdapter) Sync() error {
	if err := a.file.Sync(); err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	return nil
}

func (a *FileAdapter) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	if err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	return nil
}
