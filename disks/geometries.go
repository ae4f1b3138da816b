// Package disks is the catalog of floppy geometries the emulator can mount.
//
// Unlike a general-purpose disk image tool, the emulator supports a closed
// set of exactly three geometries, so the catalog is small, but it's kept
// in the same embedded-CSV-plus-gocsv shape the wider disko family of tools
// uses for its (much larger) historical media catalog.
package disks

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

//go:embed floppy_geometries.csv
var floppyGeometriesRawCSV string

// Geometry describes one supported floppy format.
type Geometry struct {
	Name            string `csv:"name"`
	Slug            string `csv:"slug"`
	TotalSectors    uint32 `csv:"total_sectors"`
	MetadataSectors uint32 `csv:"metadata_sectors"`
	Bytes           int64  `csv:"bytes"`
}

var (
	byName []Geometry
	bySlug map[string]Geometry
)

func init() {
	bySlug = make(map[string]Geometry)

	reader := strings.NewReader(floppyGeometriesRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := bySlug[row.Slug]; exists {
			return fmt.Errorf("duplicate floppy geometry slug %q", row.Slug)
		}
		bySlug[row.Slug] = row
		byName = append(byName, row)
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("disks: failed to parse embedded geometry catalog: %s", err))
	}
}

// All returns every supported geometry, in the catalog's declared order
// (720K, 1.2M, 1.44M).
func All() []Geometry {
	out := make([]Geometry, len(byName))
	copy(out, byName)
	return out
}

// BySlug looks up a geometry by its CLI-facing slug (e.g. "1.44m").
func BySlug(slug string) (Geometry, bool) {
	g, ok := bySlug[strings.ToLower(slug)]
	return g, ok
}
