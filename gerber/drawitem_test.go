package gerber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_SegmentReordersLexicographically(t *testing.T) {
	img := newImage()
	e := newEmitter(img)
	e.EmitSegment(Point{10, 0}, Point{0, 0}, 100, "top", 10, false, false)

	require.Len(t, img.Items(), 1)
	item := img.Items()[0]
	assert.Equal(t, Point{0, 0}, item.Start)
	assert.Equal(t, Point{10, 0}, item.End)
}

func TestEmitter_ArcFlipsCWWhenReordered(t *testing.T) {
	img := newImage()
	e := newEmitter(img)
	e.EmitArc(Point{10, 0}, Point{0, 0}, Point{5, 0}, 100, true, true, "top", 10, false, false)

	item := img.Items()[0]
	assert.Equal(t, Point{0, 0}, item.Start)
	assert.Equal(t, Point{10, 0}, item.End)
	assert.False(t, item.CW, "reordering start/end flips the winding sense")
}

func TestEmitter_NegateY(t *testing.T) {
	img := newImage()
	e := &Emitter{img: img, NegateY: true}
	e.EmitFlash(Point{10, 20}, 10, TagRound, "top", false, false)

	item := img.Items()[0]
	assert.Equal(t, Point{10, -20}, item.Position)
}

func TestEmitter_RegionDoesNotRequireClosedPolygon(t *testing.T) {
	img := newImage()
	e := newEmitter(img)
	corners := []Point{{0, 0}, {10000, 0}, {10000, 10000}, {0, 10000}}
	e.EmitRegion(corners, "top", false, false)

	item := img.Items()[0]
	assert.Equal(t, ItemRegion, item.Kind)
	assert.Equal(t, corners, item.Polygon)
	assert.NotEqual(t, item.Polygon[0], item.Polygon[len(item.Polygon)-1])
}

func TestEmitter_Circle(t *testing.T) {
	img := newImage()
	e := newEmitter(img)
	e.EmitCircle(Point{100, 100}, 50, 10, "top", 10, false, false)

	item := img.Items()[0]
	assert.Equal(t, ItemCircle, item.Kind)
	assert.Equal(t, Point{100, 100}, item.Center)
	assert.Equal(t, int64(50), item.Radius)
}

func TestShapeTagFor(t *testing.T) {
	assert.Equal(t, TagRound, shapeTagFor(&Aperture{Shape: ShapeCircle}))
	assert.Equal(t, TagRect, shapeTagFor(&Aperture{Shape: ShapeRect}))
	assert.Equal(t, TagOval, shapeTagFor(&Aperture{Shape: ShapeOval}))
	assert.Equal(t, TagRegularPolygon, shapeTagFor(&Aperture{Shape: ShapePolygon}))
	assert.Equal(t, TagMacro, shapeTagFor(&Aperture{Shape: ShapeMacro}))
}
