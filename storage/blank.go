package storage

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/noxer/bytewriter"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/errors"
)

// bootSectorFields lays out the handful of BIOS Parameter Block fields a
// blank FAT12 floppy needs, field layout grounded on the teacher's
// RawFATBootSectorWithBPB. This is deliberately not a FAT filesystem
// implementation: it writes only the fixed reserved-area structure, never
// parses directory entries or cluster chains, so the external FAT library
// stays the one that actually manages files on the mounted image.
type bootSectorFields struct {
	sectorsPerCluster uint8
	reservedSectors   uint16
	numFATs           uint8
	rootEntryCount    uint16
	media             uint8
	sectorsPerFAT     uint16
	totalSectors      uint16
}

func bootSectorFor(g fe.Geometry) bootSectorFields {
	// Each of the two FAT copies gets (metadataSectors-1-rootDirSectors)/2
	// sectors. The root directory has 112 entries (7 sectors) on 720K and 224
	// entries (14 sectors) on the two HD formats; all three use a single
	// reserved sector. That gives 3, 7 and 9 sectors per FAT for 720K, 1.2M
	// and 1.44M.
	rootEntryCount := uint16(224)
	if g.TotalSectors <= 1440 {
		rootEntryCount = 112
	}
	rootDirSectors := uint16(rootEntryCount*32/fe.SectorSize)
	reserved := uint16(1)
	fatSectors := (uint16(g.MetadataSectors) - reserved - rootDirSectors) / 2

	return bootSectorFields{
		sectorsPerCluster: 1,
		reservedSectors:   reserved,
		numFATs:           2,
		rootEntryCount:    rootEntryCount,
		media:             0xF0,
		sectorsPerFAT:     fatSectors,
		totalSectors:      uint16(g.TotalSectors),
	}
}

// encodeBootSector assembles a 512-byte FAT12 boot sector into buf using
// bytewriter, grounded on the teacher's use of bytewriter in
// file_systems/unixv1/format.go to sequentially build a fixed-layout header.
func encodeBootSector(buf []byte, f bootSectorFields) {
	w := bytewriter.New(buf)

	w.Write([]byte{0xEB, 0x3C, 0x90})     // JmpBoot
	w.Write([]byte("FLOPPYEM"))           // OEMName, 8 bytes
	writeUint16(w, fe.SectorSize)         // BytesPerSector
	w.Write([]byte{f.sectorsPerCluster})  // SectorsPerCluster
	writeUint16(w, f.reservedSectors)     // ReservedSectors
	w.Write([]byte{f.numFATs})            // NumFATs
	writeUint16(w, f.rootEntryCount)      // RootEntryCount
	writeUint16(w, f.totalSectors)        // TotalSectors16
	w.Write([]byte{f.media})              // Media descriptor
	writeUint16(w, f.sectorsPerFAT)       // SectorsPerFAT16

	buf[510] = 0x55
	buf[511] = 0xAA
}

func writeUint16(w io.Writer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.Write(tmp[:])
}

// FormatBlank writes a minimal blank FAT12 reserved area (boot sector, two
// zeroed FAT copies, zeroed root directory) to an already-open, correctly
// sized Adapter. The data region beyond the metadata sectors is left as
// whatever the backing storage already contains (for a freshly truncated
// file, that's zeros).
func FormatBlank(adapter Adapter, g fe.Geometry) error {
	f := bootSectorFor(g)

	boot := make([]byte, fe.SectorSize)
	encodeBootSector(boot, f)
	if err := adapter.WriteAt(0, boot); err != nil {
		return err
	}

	zeroSector := make([]byte, fe.SectorSize)
	for sector := uint32(1); sector < g.MetadataSectors; sector++ {
		if err := adapter.WriteAt(int64(sector)*fe.SectorSize, zeroSector); err != nil {
			return err
		}
	}

	return adapter.Sync()
}

// CreateBlankImageFile creates a new .img file on disk at path, sized for
// geometry g, and writes its blank reserved area.
func CreateBlankImageFile(path string, g fe.Geometry) error {
	size := int64(g.TotalSectors) * fe.SectorSize

	f, err := os.Create(path)
	if err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return errors.ErrUnderlyingIO.WrapError(err)
	}
	if err := f.Close(); err != nil {
		return errors.ErrUnderlyingIO.WrapError(err)
	}

	adapter := NewFileAdapter()
	if err := adapter.Open(path); err != nil {
		return err
	}
	defer adapter.Close()

	return FormatBlank(adapter, g)
}
