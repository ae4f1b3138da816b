// Package usbfacade implements the USB Block Façade (C3): it translates the
// host's block-read/block-write/capacity/ready queries into cache
// operations and tracks media-change state for the host, the way a USB
// Mass Storage Class Bulk-Only Transport SCSI target would.
package usbfacade

import (
	"sync"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/errors"
	"github.com/demyanenko-d/floppyemu/lifecycle"
)

// defaultTotalSectors is the capacity reported when no image is mounted,
// matching the largest supported geometry (1.44M) so a host that queries
// capacity before the first mount gets a safe, generously-sized default.
const defaultTotalSectors = 2880

// SenseCode is a (sense key, additional sense code, qualifier) triple in the
// SCSI convention
// used to report why a command failed.
type SenseCode struct {
	Key  byte
	ASC  byte
	ASCQ byte
}

// SenseUnitAttention is reported the first time UnitReady is polled after a
// media change, forcing the host to re-read capacity and re-mount.
var SenseUnitAttention = SenseCode{Key: 0x06, ASC: 0x28, ASCQ: 0x00}

// SenseIllegalRequest is returned for any SCSI command this façade doesn't
// implement.
var SenseIllegalRequest = SenseCode{Key: 0x05, ASC: 0x20, ASCQ: 0x00}

// Inquiry data the façade reports for every INQUIRY command.
const (
	VendorID   = "FLOPPYEM"
	ProductID  = "USB Floppy Emu "
	ProductRev = "1.0 "
)

// Facade adapts the cache/lifecycle core to the USB-MSC/SCSI surface.
type Facade struct {
	mgr *lifecycle.Manager

	mu       sync.Mutex
	lastEdge uint64
	primed   bool
	flagged  bool
}

// New wraps mgr, whose Cache() backs Read10/Write10.
func New(mgr *lifecycle.Manager) *Facade {
	return &Facade{mgr: mgr}
}

// UnitReady reports whether the device is ready to serve block I/O. It
// compares the manager's ready-edge counter (not the raw status) against
// the last value it observed, so a transition is flagged even if it
// happened entirely between two UnitReady calls — an eject immediately
// followed by a remount, for instance. On the first query after any such
// edge, it reports not-ready with SenseUnitAttention and clears the
// one-shot flag, forcing the host to re-read capacity before trusting the
// next UnitReady result. The very first call only records the counter, so
// edges that happened before it (such as the first mount) are not flagged.
func (f *Facade) UnitReady() (ready bool, sense *SenseCode) {
	edge := f.mgr.ReadyEdges()
	nowReady := f.mgr.Status() == fe.StatusReady

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.primed {
		f.primed = true
		f.lastEdge = edge
	} else if edge != f.lastEdge {
		f.lastEdge = edge
		f.flagged = true
	}

	if f.flagged {
		f.flagged = false
		return false, &SenseUnitAttention
	}

	return nowReady, nil
}

// Capacity returns (total_sectors, bytes_per_sector).
func (f *Facade) Capacity() (totalSectors fe.LBA, bytesPerSector uint32) {
	if f.mgr.Status() != fe.StatusReady {
		return defaultTotalSectors, fe.SectorSize
	}
	return f.mgr.Snapshot().TotalSectors, fe.SectorSize
}

func (f *Facade) totalSectorsForBoundsCheck() fe.LBA {
	if f.mgr.Status() != fe.StatusReady {
		return defaultTotalSectors
	}
	return f.mgr.Snapshot().TotalSectors
}

// Read10 serves one sector to the host.
func (f *Facade) Read10(lba fe.LBA, buf []byte) error {
	if lba >= f.totalSectorsForBoundsCheck() {
		return errors.ErrOutOfRange
	}
	return f.mgr.Cache().ReadSector(lba, buf)
}

// Write10 writes one sector from the host.
func (f *Facade) Write10(lba fe.LBA, buf []byte) error {
	if lba >= f.totalSectorsForBoundsCheck() {
		return errors.ErrOutOfRange
	}
	return f.mgr.Cache().WriteSector(lba, buf)
}

// Inquiry returns the constant vendor/product/revision strings.
func (f *Facade) Inquiry() (vendor, product, revision string) {
	return VendorID, ProductID, ProductRev
}
