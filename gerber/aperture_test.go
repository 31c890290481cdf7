package gerber

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApertureTable_GetOrCreateOutOfRange(t *testing.T) {
	tbl := NewApertureTable()
	assert.Nil(t, tbl.GetOrCreate(5, true), "D-codes below 10 are reserved, never tool selectors")
	assert.Nil(t, tbl.GetOrCreate(1000, true))
}

func TestApertureTable_LazyCreateThenDefine(t *testing.T) {
	tbl := NewApertureTable()
	a := tbl.GetOrCreate(11, true)
	require.NotNil(t, a)
	assert.False(t, a.Defined)

	ok := tbl.Define(&Aperture{DCode: 11, Shape: ShapeCircle, Size: Size{X: 500, Y: 500}})
	assert.True(t, ok)
	assert.True(t, tbl.Get(11).Defined)
	assert.Equal(t, int64(500), tbl.Get(11).Size.X)
}

func TestApertureTable_DefineOutOfRangeDropped(t *testing.T) {
	tbl := NewApertureTable()
	ok := tbl.Define(&Aperture{DCode: 1000})
	assert.False(t, ok)
	assert.Nil(t, tbl.Get(1000))
}

func TestApertureToPolygon_CircleVertexCount(t *testing.T) {
	a := &Aperture{Shape: ShapeCircle, Size: Size{X: 1000, Y: 1000}}
	poly := ApertureToPolygon(a, 8)
	assert.Len(t, poly, 8)
	// every vertex sits within one unit of radius 500 from origin (vertex
	// coordinates are truncated to integers, e.g. (353,353) at 45 degrees).
	for _, p := range poly {
		dist := math.Hypot(float64(p.X), float64(p.Y))
		assert.InDelta(t, 500, dist, 1)
	}
}

func TestApertureToPolygon_RectWithRoundDrillBridges(t *testing.T) {
	a := &Aperture{
		Shape: ShapeRect, Size: Size{X: 2000, Y: 1000},
		Drill: Size{X: 200, Y: 200}, DrillShape: DrillRound,
	}
	poly := ApertureToPolygon(a, 16)
	// 4 rect corners + 1 bridge anchor repeat + 16 hole points + 1 hole
	// repeat-close = 4 + 1 + 16 + 1.
	assert.Len(t, poly, 4+1+16+1)
	assert.Equal(t, poly[0], poly[4], "bridge anchor repeats the outline's first vertex")
}

func TestApertureToPolygon_NoDrillIsPlainOutline(t *testing.T) {
	a := &Aperture{Shape: ShapeRect, Size: Size{X: 2000, Y: 1000}}
	poly := ApertureToPolygon(a, 16)
	assert.Len(t, poly, 4)
}

func TestRegularPolygon_EdgeCountAndRotation(t *testing.T) {
	pts := regularPolygon(1000, 3, 0, 32)
	assert.Len(t, pts, 3)
	// first vertex sits on the +X axis when rotation is 0.
	assert.InDelta(t, 1000, pts[0].X, 1)
	assert.InDelta(t, 0, pts[0].Y, 1)
}

func TestOvalPolygon_SquareDegeneratesToCircle(t *testing.T) {
	pts := ovalPolygon(1000, 1000, 16)
	assert.Len(t, pts, 16)
}
