package gerber

// ShapeTag drives how a renderer draws a Flash without needing to consult
// the aperture table itself.
type ShapeTag int

const (
	TagRound ShapeTag = iota
	TagRect
	TagOval
	TagRegularPolygon
	TagMacro
)

// ItemKind tags which variant of DrawItem is populated.
type ItemKind int

const (
	ItemSegment ItemKind = iota
	ItemArc
	ItemCircle
	ItemRegion
	ItemFlash
)

// DrawItem is one emitted graphic element (spec.md §3 "DrawItem"). Exactly
// one field set is meaningful, selected by Kind; the list is append-only.
type DrawItem struct {
	Kind ItemKind

	// Segment / Arc / Circle
	Start, End, Center Point
	Width              int64
	Radius             int64 // Circle only
	CW                 bool
	MultiQuadrant      bool

	// Region
	Polygon []Point

	// Flash
	Position  Point
	ApertureID int
	ShapeTag  ShapeTag

	Layer       string
	DCode       int
	Polarity    bool // true = clear/erase, per layer_negative XOR image_negative
	UnitsMetric bool
}

// Emitter is a thin facade around an Image's DrawItem list (spec.md §4.6).
// It never performs geometric simplification; its only jobs are appending,
// normalizing segment/arc direction for direction-agnostic renderers, and
// applying the Y-axis negation policy in exactly one place.
type Emitter struct {
	img *Image
	// NegateY mirrors every emitted item's Y coordinate, for renderers whose
	// raster convention has Y pointing down while Gerber space has Y
	// pointing up (spec.md §3 "draw items may negate Y to match a
	// renderer's convention, and that negation is specified once per item
	// at emit time").
	NegateY bool
}

func newEmitter(img *Image) *Emitter { return &Emitter{img: img} }

func (e *Emitter) negate(p Point) Point {
	if e.NegateY {
		p.Y = -p.Y
	}
	return p
}

// EmitSegment appends a straight-line stroke. Start/End are reordered
// lexicographically only when direction does not matter to a consumer;
// since a Segment carries no direction-sensitive field, the reorder is
// unconditional here (callers needing the original stroke order should not
// rely on Start<End).
func (e *Emitter) EmitSegment(start, end Point, width int64, layer string, dcode int, polarity, unitsMetric bool) {
	start, end = e.negate(start), e.negate(end)
	if end.Less(start) {
		start, end = end, start
	}
	e.img.items = append(e.img.items, DrawItem{
		Kind: ItemSegment, Start: start, End: end, Width: width,
		Layer: layer, DCode: dcode, Polarity: polarity, UnitsMetric: unitsMetric,
	})
}

// EmitArc appends a stroked arc. If Start/End would be reordered for a
// direction-agnostic consumer, CW is flipped to match, per spec.md §4.6
// ("for arcs this reordering must also flip cw").
func (e *Emitter) EmitArc(start, end, center Point, width int64, cw, multi bool, layer string, dcode int, polarity, unitsMetric bool) {
	start, end, center = e.negate(start), e.negate(end), e.negate(center)
	if e.NegateY {
		cw = !cw
	}
	if end.Less(start) {
		start, end = end, start
		cw = !cw
	}
	e.img.items = append(e.img.items, DrawItem{
		Kind: ItemArc, Start: start, End: end, Center: center, Width: width,
		CW: cw, MultiQuadrant: multi,
		Layer: layer, DCode: dcode, Polarity: polarity, UnitsMetric: unitsMetric,
	})
}

// EmitCircle appends a stroked full-circle ring: a degenerate arc whose
// start and end coincide and whose sweep is a full revolution (spec.md §3
// "Circle { center, radius, width ... } — stroked ring"), produced when a
// multi-quadrant D01 returns to its starting point.
func (e *Emitter) EmitCircle(center Point, radius, width int64, layer string, dcode int, polarity, unitsMetric bool) {
	center = e.negate(center)
	e.img.items = append(e.img.items, DrawItem{
		Kind: ItemCircle, Center: center, Radius: radius, Width: width,
		Layer: layer, DCode: dcode, Polarity: polarity, UnitsMetric: unitsMetric,
	})
}

// EmitRegion appends exactly one filled-polygon item for a closed G36/G37
// block. The first and last vertex need not coincide; the renderer closes
// it (spec.md §8).
func (e *Emitter) EmitRegion(corners []Point, layer string, polarity, unitsMetric bool) {
	out := make([]Point, len(corners))
	for i, p := range corners {
		out[i] = e.negate(p)
	}
	e.img.items = append(e.img.items, DrawItem{
		Kind: ItemRegion, Polygon: out, Layer: layer, Polarity: polarity, UnitsMetric: unitsMetric,
	})
}

// EmitFlash appends one stamped-aperture item.
func (e *Emitter) EmitFlash(pos Point, apertureID int, tag ShapeTag, layer string, polarity, unitsMetric bool) {
	e.img.items = append(e.img.items, DrawItem{
		Kind: ItemFlash, Position: e.negate(pos), ApertureID: apertureID, ShapeTag: tag,
		Layer: layer, DCode: apertureID, Polarity: polarity, UnitsMetric: unitsMetric,
	})
}

func shapeTagFor(a *Aperture) ShapeTag {
	switch a.Shape {
	case ShapeRect:
		return TagRect
	case ShapeOval:
		return TagOval
	case ShapePolygon:
		return TagRegularPolygon
	case ShapeMacro:
		return TagMacro
	default:
		return TagRound
	}
}
