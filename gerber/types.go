// Package gerber implements the core of an RS-274X/RS-274D photoplot
// interpreter: the lexer, the coordinate decoder, the aperture macro engine,
// the D-code table, and the command interpreter that produces a stream of
// draw items. It does not rasterize, composite layers, run DRC, write
// Gerber, or execute Excellon drill files — those are left to callers.
package gerber

import "fmt"

// UnitsPerInch is the internal coordinate resolution: 1 unit = 1/10000 inch.
const UnitsPerInch = 10000

// UnitsPerMM converts a millimeter value to internal units.
const UnitsPerMM = UnitsPerInch / 25.4

// Point is an absolute 2D coordinate in internal units (1/10000 inch).
type Point struct {
	X, Y int64
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Add returns the component-wise sum of p and q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the component-wise difference p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Less orders points lexicographically by X then Y, used when the emitter
// normalizes segment direction for renderers that are direction-agnostic.
func (p Point) Less(q Point) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	return p.Y < q.Y
}

// Size is a width/height pair in internal units.
type Size struct {
	X, Y int64
}

// Units identifies the measurement system a coordinate literal or aperture
// modifier was authored in.
type Units int

const (
	UnitsInch Units = iota
	UnitsMM
)

func (u Units) String() string {
	if u == UnitsMM {
		return "MM"
	}
	return "IN"
}

// ToInternal converts a raw value expressed in u into internal units.
func (u Units) ToInternal(v float64) int64 {
	if u == UnitsMM {
		return int64(v * UnitsPerMM)
	}
	return int64(v * UnitsPerInch)
}

// ToInternalF is the float64-preserving form of ToInternal, keeping
// sub-unit precision. Nothing in this module calls it; the macro evaluator
// returns values in the macro's own units.
func (u Units) ToInternalF(v float64) float64 {
	if u == UnitsMM {
		return v * UnitsPerMM
	}
	return v * UnitsPerInch
}
