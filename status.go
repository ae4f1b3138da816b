package floppyemu

// Status is the sum type over the floppy's lifecycle states. Transitions
// are driven exclusively by the Image Lifecycle Manager (C2); every other
// component only observes it.
type Status int32

const (
	// StatusNoImage means no image is mounted.
	StatusNoImage Status = iota
	// StatusLoading means a mount is in progress (metadata region preload).
	StatusLoading
	// StatusReady means the image handle is open, the metadata region is
	// fully populated, and geometry is published.
	StatusReady
	// StatusError means the last mount attempt failed; the operator must
	// acknowledge before the next load.
	StatusError
)

// String renders the status the way the UI's "Disk Ready" screen would.
func (s Status) String() string {
	switch s {
	case StatusNoImage:
		return "NoImage"
	case StatusLoading:
		return "Loading"
	case StatusReady:
		return "Ready"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MountedImage is a read-only snapshot of the currently mounted image, valid
// for the instant it was taken. It is immutable for the duration of a mount
// except CacheHits/CacheMisses, which only increase.
type MountedImage struct {
	Filename     string
	Geometry     Geometry
	TotalSectors LBA
	CacheHits    uint32
	CacheMisses  uint32
	LoadedKB     uint32
	TotalFATKB   uint32
	ErrorMessage string
}
