// Package lifecycle implements the Image Lifecycle Manager (C2): the
// NoImage/Loading/Ready/Error state machine that detects geometry, preloads
// the pinned metadata region, and flushes-and-evicts on eject.
package lifecycle

import (
	"fmt"
	"log"
	"sync"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/cache"
	"github.com/demyanenko-d/floppyemu/errors"
	"github.com/demyanenko-d/floppyemu/storage"
)

// ProgressFunc is called with the current preload progress every 4 sectors,
// so a UI can render loaded_kb / total_fat_kb.
type ProgressFunc func(loadedKB, totalFATKB uint32)

// Manager owns the floppy status and the mounted image record. All other
// components only read them (via Status/Snapshot).
type Manager struct {
	mu sync.Mutex

	status       fe.Status
	readyEdges   uint64
	filename     string
	geometry     fe.Geometry
	totalSectors fe.LBA
	errorMessage string
	tracker      *preloadTracker

	cache      *cache.Cache
	storage    storage.Adapter
	onProgress ProgressFunc
	logger     *log.Logger
}

// New constructs a Manager around an already-constructed Cache and a
// not-yet-open Adapter. onProgress may be nil.
func New(c *cache.Cache, adapter storage.Adapter, onProgress ProgressFunc, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		cache:      c,
		storage:    adapter,
		onProgress: onProgress,
		logger:     logger,
		status:     fe.StatusNoImage,
	}
}

// Cache returns the cache this manager drives. The USB façade uses this to
// route Read10/Write10 directly into the cache without going through the
// manager for every block operation.
func (m *Manager) Cache() *cache.Cache {
	return m.cache
}

// Status returns the current published status.
func (m *Manager) Status() fe.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Snapshot returns a read-only view of the currently mounted (or
// last-attempted) image, including live cache hit/miss counters.
func (m *Manager) Snapshot() fe.MountedImage {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := fe.MountedImage{
		Filename:     m.filename,
		Geometry:     m.geometry,
		TotalSectors: m.totalSectors,
		CacheHits:    m.cache.Hits(),
		CacheMisses:  m.cache.Misses(),
		ErrorMessage: m.errorMessage,
	}
	if m.tracker != nil {
		snap.LoadedKB = uint32(m.tracker.count()) * fe.SectorSize / 1024
		snap.TotalFATKB = uint32(m.tracker.total) * fe.SectorSize / 1024
	}
	return snap
}

// setStatus publishes s and, if it flips the ready/not-ready boolean, bumps
// readyEdges. The façade compares against readyEdges rather than the raw
// status so a transition is never missed even if no one polled in between
// (e.g. an eject immediately followed by a remount).
func (m *Manager) setStatus(s fe.Status) {
	m.mu.Lock()
	m.setStatusLocked(s)
	m.mu.Unlock()
}

func (m *Manager) setStatusLocked(s fe.Status) {
	wasReady := m.status == fe.StatusReady
	m.status = s
	if (s == fe.StatusReady) != wasReady {
		m.readyEdges++
	}
}

// ReadyEdges returns the number of times the ready/not-ready boolean has
// flipped since construction. The USB façade uses this to detect a media
// change it didn't directly observe.
func (m *Manager) ReadyEdges() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyEdges
}

func (m *Manager) fail(kind errors.DiskoError, detail string) error {
	err := kind.WithMessage(detail)
	m.mu.Lock()
	m.setStatusLocked(fe.StatusError)
	m.errorMessage = err.Error()
	m.mu.Unlock()
	m.logger.Printf("floppy: mount failed: %s", err.Error())
	return err
}

// Load mounts the image at filename: opens it, detects its geometry,
// preloads the pinned metadata region, and publishes Ready. Any failure
// transitions to Error and returns the triggering error.
func (m *Manager) Load(filename string) error {
	m.setStatus(fe.StatusLoading)
	m.mu.Lock()
	m.filename = filename
	m.errorMessage = ""
	m.tracker = nil
	m.mu.Unlock()
	m.cache.ResetStats()
	m.cache.Reset()

	if err := m.storage.Open(filename); err != nil {
		return m.fail(errors.ErrUnderlyingIO, fmt.Sprintf("opening %q: %s", filename, err.Error()))
	}

	size, err := m.storage.Size()
	if err != nil {
		return m.fail(errors.ErrUnderlyingIO, fmt.Sprintf("statting %q: %s", filename, err.Error()))
	}

	geometry, ok := fe.DetectGeometry(size)
	if !ok {
		return m.fail(errors.ErrUnknownFormat, fmt.Sprintf("file size %d bytes matches no supported geometry", size))
	}

	m.mu.Lock()
	m.geometry = geometry
	m.totalSectors = geometry.TotalSectors
	m.tracker = newPreloadTracker(int(geometry.MetadataSectors))
	m.mu.Unlock()
	m.cache.Configure(geometry.MetadataSectors, geometry.TotalSectors)

	if err := m.preloadMetadata(geometry); err != nil {
		m.cache.Reset()
		return m.fail(errors.ErrPreloadFailure, err.Error())
	}

	m.setStatus(fe.StatusReady)
	m.logger.Printf("floppy: mounted %q as %s (%d sectors)", filename, geometry.Name, geometry.TotalSectors)
	return nil
}

func (m *Manager) preloadMetadata(g fe.Geometry) error {
	buf := make([]byte, fe.SectorSize)
	for s := uint32(0); s < g.MetadataSectors; s++ {
		if err := m.cache.ReadSector(fe.LBA(s), buf); err != nil {
			return fmt.Errorf("preloading sector %d: %w", s, err)
		}

		m.mu.Lock()
		m.tracker.markLoaded(int(s))
		loaded, total := m.tracker.count(), m.tracker.total
		m.mu.Unlock()

		if (s+1)%4 == 0 && m.onProgress != nil {
			m.onProgress(uint32(loaded)*fe.SectorSize/1024, uint32(total)*fe.SectorSize/1024)
		}
	}
	return nil
}

// Eject flushes dirty blocks, evicts everything, closes the image, and
// publishes NoImage. Flush failures are logged but never block the
// transition: the host asked for the media to be removed, and a wedged
// device is worse than losing unflushed writes. Eject is idempotent.
func (m *Manager) Eject() error {
	if err := m.cache.FlushAll(); err != nil {
		m.logger.Printf("floppy: eject: flush failed, dropping unflushed writes: %s", err.Error())
	}
	m.cache.Reset()

	if err := m.storage.Close(); err != nil {
		m.logger.Printf("floppy: eject: closing image failed: %s", err.Error())
	}

	m.mu.Lock()
	m.setStatusLocked(fe.StatusNoImage)
	m.filename = ""
	m.geometry = fe.Geometry{}
	m.totalSectors = 0
	m.errorMessage = ""
	m.tracker = nil
	m.mu.Unlock()

	return nil
}

// Acknowledge clears an Error status back to NoImage, modeling the
// operator's OK press on the device's error screen.
func (m *Manager) Acknowledge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == fe.StatusError {
		m.setStatusLocked(fe.StatusNoImage)
		m.errorMessage = ""
	}
}
