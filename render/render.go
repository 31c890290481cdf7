// Package render is the external collaborator spec.md always assumed would
// exist (§1 "Deliberately OUT of scope ... rasterization"): it consumes a
// gerber.Image's DrawItem stream and produces an image.Image. It is not part
// of the core and is explicitly allowed to rasterize, which the core itself
// never does.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"gerbercore/gerber"
)

// Options controls how a gerber.Image is rasterized. DPI and SegsPerTurn
// mirror the teacher's DPI constant and the core's defaultSegsPerTurn,
// surfaced here instead of hardcoded since the renderer, unlike the core, is
// allowed to take configuration (spec.md §6.3: the core itself takes none).
type Options struct {
	DPI         float64
	SegsPerTurn int
	Background  color.Color
	Foreground  color.Color
}

// DefaultOptions matches the teacher's DPI=1000 and the core's default
// segs-per-turn of 32.
func DefaultOptions() Options {
	return Options{
		DPI:         1000,
		SegsPerTurn: 32,
		Background:  color.Black,
		Foreground:  color.White,
	}
}

// Bounds is the bounding box of a rendered image, in internal units
// (1/10000 inch), with the padding already applied.
type Bounds struct {
	MinX, MinY, MaxX, MaxY int64
}

func (b Bounds) widthUnits() int64  { return b.MaxX - b.MinX }
func (b Bounds) heightUnits() int64 { return b.MaxY - b.MinY }

// paddingUnits is the fixed border the teacher's CalculateBounds added around
// a board (2mm), expressed in internal units.
var paddingUnits = gerber.UnitsMM.ToInternal(2)

// ComputeBounds walks every DrawItem's extremal points, the way the
// teacher's GerberFile.CalculateBounds walked its command list, and pads the
// result by paddingUnits on every side. An image with no items gets an
// arbitrary small placeholder box, matching the teacher's fallback.
func ComputeBounds(items []gerber.DrawItem) Bounds {
	minX, minY := int64(math.MaxInt64), int64(math.MaxInt64)
	maxX, maxY := int64(math.MinInt64), int64(math.MinInt64)
	seen := false

	update := func(p gerber.Point) {
		seen = true
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	for _, it := range items {
		switch it.Kind {
		case gerber.ItemSegment, gerber.ItemArc:
			update(it.Start)
			update(it.End)
		case gerber.ItemCircle:
			update(gerber.Point{X: it.Center.X - it.Radius, Y: it.Center.Y - it.Radius})
			update(gerber.Point{X: it.Center.X + it.Radius, Y: it.Center.Y + it.Radius})
		case gerber.ItemRegion:
			for _, p := range it.Polygon {
				update(p)
			}
		case gerber.ItemFlash:
			update(it.Position)
		}
	}

	if !seen {
		return Bounds{0, 0, gerber.UnitsMM.ToInternal(10), gerber.UnitsMM.ToInternal(10)}
	}
	return Bounds{
		MinX: minX - paddingUnits, MinY: minY - paddingUnits,
		MaxX: maxX + paddingUnits, MaxY: maxY + paddingUnits,
	}
}

// Render rasterizes items onto a fresh image.Image, consulting apertures for
// flash shapes (round/rect/oval/regular-polygon) and macros for
// ShapeTag=macro flashes. DrawItem.UnitsMetric is not consulted: item
// coordinates are already internal units by the time items reach here
// (spec.md §3), and macro primitives are scaled by the units recorded on
// each evaluated primitive.
func Render(items []gerber.DrawItem, apertures *gerber.ApertureTable, macros map[string]*gerber.ApertureMacro, bounds Bounds, opts Options) image.Image {
	if opts.DPI <= 0 {
		opts = DefaultOptions()
	}
	if opts.SegsPerTurn <= 0 {
		opts.SegsPerTurn = 32
	}
	scale := opts.DPI / float64(gerber.UnitsPerInch)
	w := int(float64(bounds.widthUnits()) * scale)
	h := int(float64(bounds.heightUnits()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dc := gg.NewContext(w, h)
	dc.SetColor(opts.Background)
	dc.Clear()

	toPx := func(p gerber.Point) (float64, float64) {
		x := float64(p.X-bounds.MinX) * scale
		// Gerber Y points up; raster Y points down (teacher's toPix flip).
		y := float64(bounds.MaxY-p.Y) * scale
		return x, y
	}

	for _, it := range items {
		col := opts.Foreground
		if it.Polarity {
			col = opts.Background
		}
		dc.SetColor(col)

		switch it.Kind {
		case gerber.ItemSegment:
			x1, y1 := toPx(it.Start)
			x2, y2 := toPx(it.End)
			dc.SetLineWidth(float64(it.Width) * scale)
			dc.MoveTo(x1, y1)
			dc.LineTo(x2, y2)
			dc.Stroke()

		case gerber.ItemArc:
			drawArc(dc, it, toPx, scale, opts.SegsPerTurn)

		case gerber.ItemCircle:
			cx, cy := toPx(it.Center)
			dc.SetLineWidth(float64(it.Width) * scale)
			dc.DrawCircle(cx, cy, float64(it.Radius)*scale)
			dc.Stroke()

		case gerber.ItemRegion:
			if len(it.Polygon) < 2 {
				continue
			}
			x0, y0 := toPx(it.Polygon[0])
			dc.MoveTo(x0, y0)
			for _, p := range it.Polygon[1:] {
				x, y := toPx(p)
				dc.LineTo(x, y)
			}
			dc.ClosePath()
			dc.Fill()

		case gerber.ItemFlash:
			drawFlash(dc, it, apertures, macros, toPx, scale, opts.SegsPerTurn, opts.Foreground, opts.Background)
		}
	}

	return dc.Image()
}

func drawArc(dc *gg.Context, it gerber.DrawItem, toPx func(gerber.Point) (float64, float64), scale float64, segsPerTurn int) {
	cx, cy := toPx(it.Center)
	radius := math.Hypot(float64(it.Start.X-it.Center.X), float64(it.Start.Y-it.Center.Y)) * scale

	a1 := math.Atan2(float64(it.Center.Y-it.Start.Y), float64(it.Start.X-it.Center.X))
	a2 := math.Atan2(float64(it.Center.Y-it.End.Y), float64(it.End.X-it.Center.X))
	dc.SetLineWidth(float64(it.Width) * scale)
	if a2 < a1 {
		a1, a2 = a2, a1
	}
	dc.DrawArc(cx, cy, radius, a1, a2)
	dc.Stroke()
}

// drawFlash stamps one aperture at a flash's position. Built-in shapes are
// filled directly with gg primitives; macro shapes are decomposed by
// evaluating the referenced ApertureMacro's primitives against the
// aperture's stored actuals (spec.md §4.3) and filled per-primitive.
func drawFlash(dc *gg.Context, it gerber.DrawItem, apertures *gerber.ApertureTable, macros map[string]*gerber.ApertureMacro, toPx func(gerber.Point) (float64, float64), scale float64, segsPerTurn int, fg, bg color.Color) {
	ap := apertures.Get(it.ApertureID)
	if ap == nil {
		return
	}
	cx, cy := toPx(it.Position)

	switch it.ShapeTag {
	case gerber.TagMacro:
		macro := macros[ap.MacroName]
		if macro == nil {
			return
		}
		prims := macro.Evaluate(ap.Actuals, func(string) {})
		for _, p := range prims {
			drawMacroPrimitive(dc, p, cx, cy, scale, fg, bg)
		}
		return
	default:
		poly := gerber.ApertureToPolygon(ap, segsPerTurn)
		if len(poly) == 0 {
			return
		}
		x0, y0 := cx+float64(poly[0].X)*scale, cy-float64(poly[0].Y)*scale
		dc.MoveTo(x0, y0)
		for _, p := range poly[1:] {
			dc.LineTo(cx+float64(p.X)*scale, cy-float64(p.Y)*scale)
		}
		dc.ClosePath()
		dc.Fill()
	}
}

// unitsToPx converts a macro parameter to pixels, honoring the units the
// macro was defined under (spec.md §4.3: a macro's modifiers are in
// whatever MO was active at %AM time, not necessarily the image's current
// MO) rather than assuming inches unconditionally.
func unitsToPx(v, scale float64, unitsMetric bool) float64 {
	if unitsMetric {
		return v * gerber.UnitsPerMM * scale
	}
	return v * float64(gerber.UnitsPerInch) * scale
}

// drawMacroPrimitive renders one evaluated macro primitive relative to a
// flash's pixel origin (cx, cy). exposure=0 (rare — most real-world macros
// are exposure-on) fills in the background color instead of the foreground
// one, the same "erase" meaning a clear-polarity DrawItem carries. Circle,
// vector-line (2/20), center-line, lower-left-line, outline and
// regular-polygon primitives are drawn; moiré (6), thermal (7) and any other
// code are skipped (ids outside the primitive set are already reported by
// the core's macro parser).
func drawMacroPrimitive(dc *gg.Context, p gerber.EvaluatedPrimitive, cx, cy, scale float64, fg, bg color.Color) {
	toPx := func(v float64) float64 { return unitsToPx(v, scale, p.UnitsMetric) }

	fill := func() {
		if len(p.Values) > 0 && p.Values[0] == 0 {
			dc.SetColor(bg)
		} else {
			dc.SetColor(fg)
		}
		dc.Fill()
	}

	switch p.Code {
	case gerber.PrimCircle: // exposure, diameter, centerX, centerY[, rotation]
		if len(p.Values) < 4 {
			return
		}
		dia := toPx(p.Values[1])
		px := cx + toPx(p.Values[2])
		py := cy - toPx(p.Values[3])
		dc.DrawCircle(px, py, dia/2)
		fill()

	case gerber.PrimLineVector, gerber.PrimLineVectorAlt: // exposure, width, x1, y1, x2, y2, rotation
		if len(p.Values) < 6 {
			return
		}
		w := toPx(p.Values[1])
		x1 := cx + toPx(p.Values[2])
		y1 := cy - toPx(p.Values[3])
		x2 := cx + toPx(p.Values[4])
		y2 := cy - toPx(p.Values[5])
		dc.SetLineWidth(w)
		dc.MoveTo(x1, y1)
		dc.LineTo(x2, y2)
		if p.Values[0] == 0 {
			dc.SetColor(bg)
		} else {
			dc.SetColor(fg)
		}
		dc.Stroke()

	case gerber.PrimLineCenter: // exposure, width, height, centerX, centerY, rotation
		if len(p.Values) < 6 {
			return
		}
		w := toPx(p.Values[1])
		h := toPx(p.Values[2])
		px := cx + toPx(p.Values[3])
		py := cy - toPx(p.Values[4])
		dc.DrawRectangle(px-w/2, py-h/2, w, h)
		fill()

	case gerber.PrimLineLowerLeft: // exposure, width, height, x, y, rotation
		if len(p.Values) < 6 {
			return
		}
		w := toPx(p.Values[1])
		h := toPx(p.Values[2])
		px := cx + toPx(p.Values[3])
		py := cy - toPx(p.Values[4]) - h
		dc.DrawRectangle(px, py, w, h)
		fill()

	case gerber.PrimOutline: // exposure, n, x0,y0 ... xn,yn, rotation
		if len(p.Values) < 4 {
			return
		}
		n := int(p.Values[1])
		if n < 1 || len(p.Values) < 2+2*(n+1) {
			return
		}
		x0 := cx + toPx(p.Values[2])
		y0 := cy - toPx(p.Values[3])
		dc.MoveTo(x0, y0)
		for i := 1; i <= n; i++ {
			x := cx + toPx(p.Values[2+2*i])
			y := cy - toPx(p.Values[3+2*i])
			dc.LineTo(x, y)
		}
		dc.ClosePath()
		fill()

	case gerber.PrimRegularPolygon: // exposure, vertices, centerX, centerY, diameter, rotation
		if len(p.Values) < 5 {
			return
		}
		px := cx + toPx(p.Values[2])
		py := cy - toPx(p.Values[3])
		dc.DrawRegularPolygon(int(p.Values[1]), px, py, toPx(p.Values[4])/2, 0)
		fill()
	}
}
