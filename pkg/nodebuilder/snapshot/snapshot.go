// Package snapshot is the immutable view of level geometry a compile pass
// reads. The document hands its vertices, linedefs, sidedefs and sectors to
// New, which copies and validates them, so the compiler never observes a
// level mid-edit.
package snapshot

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
)

// FlagTwoSided is the classic DOOM "two sided" linedef flag.
const FlagTwoSided = 0x0004

// NoSidedef marks a missing back side.
const NoSidedef = -1

var ErrMalformedGeometry = errors.New("malformed geometry")

// MalformedGeometryError lists every reference problem found in a snapshot.
type MalformedGeometryError struct {
	Problems []string
}

func (m MalformedGeometryError) Error() string {
	return fmt.Sprintf(`malformed geometry: ("%s")`, strings.Join(m.Problems, `", "`))
}

// Is makes errors.Is(err, ErrMalformedGeometry) hold.
func (m MalformedGeometryError) Is(target error) bool {
	return target == ErrMalformedGeometry
}

// Side selects one of the two sides of a linedef.
type Side uint8

const (
	FrontSide Side = iota
	BackSide
)

func (s Side) String() string {
	if s == BackSide {
		return "back"
	}
	return "front"
}

type Vertex struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type Linedef struct {
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
	Flags uint16 `yaml:"flags"`
	Front int    `yaml:"front"`
	Back  int    `yaml:"back"`
}

type Sidedef struct {
	Sector int `yaml:"sector"`
}

// Sector is opaque to the compiler beyond its identity.
type Sector struct {
	Tag int `yaml:"tag"`
}

// Snapshot is safe for concurrent use; nothing mutates it after New.
type Snapshot struct {
	vertices []Vertex
	linedefs []Linedef
	sidedefs []Sidedef
	sectors  []Sector

	fingerprint Fingerprint
}

// New copies the given geometry and validates every cross reference.
func New(vertices []Vertex, linedefs []Linedef, sidedefs []Sidedef, sectors []Sector) (*Snapshot, error) {
	s := &Snapshot{
		vertices: append([]Vertex(nil), vertices...),
		linedefs: append([]Linedef(nil), linedefs...),
		sidedefs: append([]Sidedef(nil), sidedefs...),
		sectors:  append([]Sector(nil), sectors...),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	s.fingerprint = s.computeFingerprint()

	return s, nil
}

func (s *Snapshot) validate() error {
	var problems []string

	for i, sd := range s.sidedefs {
		if sd.Sector < 0 || sd.Sector >= len(s.sectors) {
			problems = append(problems, fmt.Sprintf("sidedef %d references missing sector %d", i, sd.Sector))
		}
	}

	for i, ld := range s.linedefs {
		if ld.Start < 0 || ld.Start >= len(s.vertices) {
			problems = append(problems, fmt.Sprintf("linedef %d start vertex %d out of range", i, ld.Start))
		}
		if ld.End < 0 || ld.End >= len(s.vertices) {
			problems = append(problems, fmt.Sprintf("linedef %d end vertex %d out of range", i, ld.End))
		}
		if ld.Front < 0 || ld.Front >= len(s.sidedefs) {
			problems = append(problems, fmt.Sprintf("linedef %d front sidedef %d missing", i, ld.Front))
		}
		if ld.Back != NoSidedef && (ld.Back < 0 || ld.Back >= len(s.sidedefs)) {
			problems = append(problems, fmt.Sprintf("linedef %d back sidedef %d out of range", i, ld.Back))
		}
	}

	if len(problems) > 0 {
		return MalformedGeometryError{Problems: problems}
	}

	return nil
}

func (s *Snapshot) NumVertices() int { return len(s.vertices) }
func (s *Snapshot) NumLinedefs() int { return len(s.linedefs) }
func (s *Snapshot) NumSidedefs() int { return len(s.sidedefs) }
func (s *Snapshot) NumSectors() int  { return len(s.sectors) }

func (s *Snapshot) Vertex(i int) Vertex   { return s.vertices[i] }
func (s *Snapshot) Linedef(i int) Linedef { return s.linedefs[i] }
func (s *Snapshot) Sidedef(i int) Sidedef { return s.sidedefs[i] }
func (s *Snapshot) Sector(i int) Sector   { return s.sectors[i] }

// Point returns vertex i as a vector.
func (s *Snapshot) Point(i int) geom.Vec2 {
	v := s.vertices[i]
	return geom.Vec2{v.X, v.Y}
}

// LineEnds returns the start and end points of linedef i.
func (s *Snapshot) LineEnds(i int) (geom.Vec2, geom.Vec2) {
	ld := s.linedefs[i]
	return s.Point(ld.Start), s.Point(ld.End)
}

// ZeroLength reports whether linedef i starts where it ends.
func (s *Snapshot) ZeroLength(i int) bool {
	a, b := s.LineEnds(i)
	return a == b
}

// TwoSided reports whether linedef i has a back sidedef.
func (s *Snapshot) TwoSided(i int) bool {
	return s.linedefs[i].Back != NoSidedef
}

// SectorOf returns the sector faced by the given side of linedef i, or -1.
func (s *Snapshot) SectorOf(i int, side Side) int {
	sd := s.linedefs[i].Front
	if side == BackSide {
		sd = s.linedefs[i].Back
	}
	if sd == NoSidedef {
		return -1
	}
	return s.sidedefs[sd].Sector
}

// SelfReferencing reports whether both sides of linedef i face the same
// sector. Such lines are interior to one room.
func (s *Snapshot) SelfReferencing(i int) bool {
	if !s.TwoSided(i) {
		return false
	}
	return s.SectorOf(i, FrontSide) == s.SectorOf(i, BackSide)
}

// Bounds covers every linedef endpoint. Vertices no line uses do not count.
func (s *Snapshot) Bounds() geom.BBox {
	b := geom.EmptyBox()
	for i := range s.linedefs {
		p1, p2 := s.LineEnds(i)
		b = b.Extend(p1).Extend(p2)
	}
	return b
}

// Fingerprint identifies the geometry content of the snapshot.
func (s *Snapshot) Fingerprint() Fingerprint {
	return s.fingerprint
}
