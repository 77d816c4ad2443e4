package bench

import (
	"fmt"

	"github.com/docker/go-units"
)

// SizeClass defines one cell of the benchmark matrix: file_count objects
// of byte_size bytes each.
type SizeClass struct {
	ByteSize  int64
	FileCount int
}

// TotalBytes returns the intended volume for one repeat of this class.
func (s SizeClass) TotalBytes() int64 {
	return s.ByteSize * int64(s.FileCount)
}

// Operation identifies one benchmark operation kind. The -P suffix marks
// parallel execution.
type Operation string

// Operation kinds, in matrix traversal order. Writes run before reads
// because reads depend on the written objects; sequential runs before
// parallel for each.
const (
	OpWrite         Operation = "WRITE"
	OpWriteParallel Operation = "WRITE-P"
	OpRead          Operation = "READ"
	OpReadParallel  Operation = "READ-P"
)

// Operations lists all operation kinds in traversal order.
var Operations = []Operation{OpWrite, OpWriteParallel, OpRead, OpReadParallel}

// IsRead reports whether the operation reads objects.
func (o Operation) IsRead() bool {
	return o == OpRead || o == OpReadParallel
}

// IsParallel reports whether the operation fans out across workers.
func (o Operation) IsParallel() bool {
	return o == OpWriteParallel || o == OpReadParallel
}

// Profile is a named, ordered sequence of size classes. Profiles are
// monotonic: quick's classes appear unchanged in default, and default's
// in full.
type Profile struct {
	Name    string
	Classes []SizeClass
}

var (
	quickClasses = []SizeClass{
		{ByteSize: 1 * units.KiB, FileCount: 100},
		{ByteSize: 10 * units.KiB, FileCount: 50},
		{ByteSize: 100 * units.KiB, FileCount: 20},
	}

	defaultClasses = append(quickClasses[:len(quickClasses):len(quickClasses)],
		SizeClass{ByteSize: 1 * units.MiB, FileCount: 10},
	)

	fullClasses = append(defaultClasses[:len(defaultClasses):len(defaultClasses)],
		SizeClass{ByteSize: 10 * units.MiB, FileCount: 5},
		SizeClass{ByteSize: 100 * units.MiB, FileCount: 2},
	)
)

// Profiles holds all known profiles.
var Profiles = map[string]*Profile{
	"quick":   {Name: "quick", Classes: quickClasses},
	"default": {Name: "default", Classes: defaultClasses},
	"full":    {Name: "full", Classes: fullClasses},
}

// ProfileByName returns the named profile.
func ProfileByName(name string) (*Profile, error) {
	p, ok := Profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (use quick, default, or full)", name)
	}

	return p, nil
}
