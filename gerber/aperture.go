package gerber

import "math"

// Shape identifies the geometry an Aperture draws, for both built-in
// D-codes and macro references.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeRect
	ShapeOval
	ShapePolygon
	ShapeMacro
)

// DrillShape identifies the optional hole punched through a standard
// aperture.
type DrillShape int

const (
	DrillNone DrillShape = iota
	DrillRound
	DrillRect
)

// Aperture is one D-code table entry (spec.md §3 "Aperture (D-code
// entry)"). A macro aperture references its ApertureMacro by name for late
// binding, per DESIGN NOTES ("no raw back-pointers").
type Aperture struct {
	DCode      int
	Shape      Shape
	Size       Size
	Drill      Size
	DrillShape DrillShape
	Rotation   int // tenths of a degree
	EdgeCount  int // regular polygon vertex count

	MacroName string
	Actuals   []float64

	InUse   bool
	Defined bool
}

// ApertureTable maps D-code integers (10..999) to Apertures, with lazy
// creation for D-codes first referenced as a drawing tool before being
// formally %AD-defined (spec.md §4.4).
type ApertureTable struct {
	entries map[int]*Aperture
}

// NewApertureTable returns an empty table.
func NewApertureTable() *ApertureTable {
	return &ApertureTable{entries: map[int]*Aperture{}}
}

// validDCode reports whether n is in the 10..999 range the spec reserves
// for apertures.
func validDCode(n int) bool { return n >= 10 && n <= 999 }

// Get returns the aperture for dcode, or nil if it was never defined or is
// out of range.
func (t *ApertureTable) Get(dcode int) *Aperture {
	return t.entries[dcode]
}

// GetOrCreate returns the aperture for dcode, optionally creating an empty
// (Defined=false) entry if allowCreate is true and dcode is in range.
func (t *ApertureTable) GetOrCreate(dcode int, allowCreate bool) *Aperture {
	if !validDCode(dcode) {
		return nil
	}
	if a, ok := t.entries[dcode]; ok {
		return a
	}
	if !allowCreate {
		return nil
	}
	a := &Aperture{DCode: dcode}
	t.entries[dcode] = a
	return a
}

// DefinedCount reports how many D-codes in the table carry a real %AD
// definition, as opposed to lazily created placeholders from a bare Dn
// selector that was never %AD-defined.
func (t *ApertureTable) DefinedCount() int {
	n := 0
	for _, a := range t.entries {
		if a.Defined {
			n++
		}
	}
	return n
}

// Define installs a into the table at a.DCode, marking it Defined. Returns
// false (and installs nothing) if a.DCode is out of range.
func (t *ApertureTable) Define(a *Aperture) bool {
	if !validDCode(a.DCode) {
		return false
	}
	a.Defined = true
	t.entries[a.DCode] = a
	return true
}

// defaultSegsPerTurn is the number of line segments used to approximate one
// full turn of a circle/arc when converting an aperture to a polygon
// outline, per spec.md §4.4.
const defaultSegsPerTurn = 32

// ApertureToPolygon converts a built-in aperture shape into a closed
// polygon outline for renderers that cannot stroke/fill shapes directly.
// When the aperture has a drill hole, the outline is closed by repeating its
// first vertex (the anchor), and the hole ring follows, closed by repeating
// its own first vertex; the polygon's closing edge runs back to the anchor.
// The hole keeps the outline's winding, so the result is a single
// self-intersecting polygon that an even-odd fill rule renders correctly
// with the hole subtracted — see
// spec.md §4.4 and original_source/gerbview/dcode.cpp's bridge construction.
func ApertureToPolygon(a *Aperture, segsPerTurn int) []Point {
	if segsPerTurn <= 0 {
		segsPerTurn = defaultSegsPerTurn
	}
	var outline []Point
	switch a.Shape {
	case ShapeCircle:
		outline = circlePolygon(Point{}, a.Size.X/2, segsPerTurn)
	case ShapeRect:
		outline = rectPolygon(a.Size.X, a.Size.Y)
	case ShapeOval:
		outline = ovalPolygon(a.Size.X, a.Size.Y, segsPerTurn)
	case ShapePolygon:
		outline = regularPolygon(a.Size.X/2, a.EdgeCount, a.Rotation, segsPerTurn)
	default:
		return nil
	}

	if a.DrillShape == DrillNone || (a.Drill.X == 0 && a.Drill.Y == 0) {
		return outline
	}

	var hole []Point
	switch a.DrillShape {
	case DrillRound:
		hole = circlePolygon(Point{}, a.Drill.X/2, segsPerTurn)
	case DrillRect:
		hole = rectPolygon(a.Drill.X, a.Drill.Y)
	}
	if len(hole) == 0 {
		return outline
	}

	// Bridge: close the outline on its anchor, walk the hole ring and close
	// it on its first point; the implicit closing edge returns to the
	// anchor. This degenerate point repetition is what makes the
	// combined polygon self-intersecting in a way an even-odd fill
	// renders as "outline minus hole".
	anchor := outline[0]
	bridged := make([]Point, 0, len(outline)+len(hole)+2)
	bridged = append(bridged, outline...)
	bridged = append(bridged, anchor)
	bridged = append(bridged, hole...)
	bridged = append(bridged, hole[0])
	return bridged
}

func circlePolygon(center Point, radius int64, segsPerTurn int) []Point {
	pts := make([]Point, 0, segsPerTurn)
	for i := 0; i < segsPerTurn; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segsPerTurn)
		pts = append(pts, Point{
			X: center.X + int64(float64(radius)*math.Cos(theta)),
			Y: center.Y + int64(float64(radius)*math.Sin(theta)),
		})
	}
	return pts
}

func rectPolygon(w, h int64) []Point {
	hw, hh := w/2, h/2
	return []Point{
		{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh},
	}
}

// ovalPolygon approximates a stadium shape (rect with semicircular ends):
// width/height define the bounding box; the longer axis gets two
// semicircular caps of radius = (shorter axis)/2.
func ovalPolygon(w, h int64, segsPerTurn int) []Point {
	if w == h {
		return circlePolygon(Point{}, w/2, segsPerTurn)
	}
	horizontal := w > h
	var radius, straight int64
	if horizontal {
		radius = h / 2
		straight = w - h
	} else {
		radius = w / 2
		straight = h - w
	}
	half := straight / 2
	steps := segsPerTurn / 2
	if steps < 2 {
		steps = 2
	}
	var pts []Point
	addArc := func(cx, cy int64, startAngle float64) {
		for i := 0; i <= steps; i++ {
			theta := startAngle + math.Pi*float64(i)/float64(steps)
			if horizontal {
				pts = append(pts, Point{cx + int64(float64(radius)*math.Cos(theta)), cy + int64(float64(radius)*math.Sin(theta))})
			} else {
				pts = append(pts, Point{cx + int64(float64(radius)*math.Sin(theta)), cy - int64(float64(radius)*math.Cos(theta))})
			}
		}
	}
	if horizontal {
		addArc(half, 0, math.Pi/2)
		addArc(-half, 0, -math.Pi/2)
	} else {
		addArc(0, half, math.Pi)
		addArc(0, -half, 0)
	}
	return pts
}

func regularPolygon(radius int64, edges int, rotationTenths int, segsPerTurn int) []Point {
	if edges < 3 {
		edges = 3
	}
	rot := float64(rotationTenths) / 10 * math.Pi / 180
	pts := make([]Point, 0, edges)
	for i := 0; i < edges; i++ {
		theta := rot + 2*math.Pi*float64(i)/float64(edges)
		pts = append(pts, Point{
			X: int64(float64(radius) * math.Cos(theta)),
			Y: int64(float64(radius) * math.Sin(theta)),
		})
	}
	return pts
}
