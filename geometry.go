package floppyemu

import "github.com/demyanenko-d/floppyemu/disks"

// sizeTolerance is the byte slack the detector allows on either side of a
// known geometry's exact size, per spec: some imaging tools pad images by a
// sector or leave a trailing partial one.
const sizeTolerance = 512

// Geometry identifies one of the three supported floppy formats.
type Geometry struct {
	Name            string
	TotalSectors    LBA
	MetadataSectors uint32
}

func fromCatalog(g disks.Geometry) Geometry {
	return Geometry{
		Name:            g.Name,
		TotalSectors:    LBA(g.TotalSectors),
		MetadataSectors: g.MetadataSectors,
	}
}

// MaxMetadataSectors is the largest metadata region among all supported
// geometries (1.44M's 33). The cache uses this bound for region selection
// before a geometry has been published.
const MaxMetadataSectors = 33

// DetectGeometry identifies the floppy format that matches sizeBytes within
// sizeTolerance. It returns false if no supported geometry matches.
func DetectGeometry(sizeBytes int64) (Geometry, bool) {
	for _, g := range disks.All() {
		diff := sizeBytes - g.Bytes
		if diff < 0 {
			diff = -diff
		}
		if diff <= sizeTolerance {
			return fromCatalog(g), true
		}
	}
	return Geometry{}, false
}
