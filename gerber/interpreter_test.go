package gerber

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveArcCenter_MultiQuadrantIsSignedOffset(t *testing.T) {
	ctx := NewImageContext()
	ctx.QuadrantMode = QuadrantMulti
	center := resolveArcCenter(ctx, Point{0, 0}, Point{10000, 10000}, Point{10000, 0})
	assert.Equal(t, Point{10000, 0}, center)
}

func TestResolveArcCenter_SingleQuadrantRecoversSign(t *testing.T) {
	ctx := NewImageContext()
	ctx.QuadrantMode = QuadrantSingle
	// A quarter circle from (1000,0) to (0,1000) around origin: I/J read as
	// unsigned magnitudes (1000,0), true center is (0,0) reached via (-I,0).
	center := resolveArcCenter(ctx, Point{1000, 0}, Point{0, 1000}, Point{1000, 0})
	assert.Equal(t, Point{0, 0}, center)
}

func TestArcPoints_QuarterTurnEndsExactlyAtEnd(t *testing.T) {
	start := Point{1000, 0}
	end := Point{0, 1000}
	center := Point{0, 0}
	pts := arcPoints(start, end, center, false, true, 32)
	assert.Equal(t, end, pts[len(pts)-1])
	assert.True(t, len(pts) >= 1)
}

func TestArcPoints_FullCircleWhenStartEqualsEnd(t *testing.T) {
	pts := arcPoints(Point{1000, 0}, Point{1000, 0}, Point{0, 0}, false, true, 32)
	// a degenerate full-circle arc should still produce a meaningful sweep,
	// not collapse to a single point.
	assert.True(t, len(pts) > 1)
}

func TestHandleGCode_NonStandardLinearWarns(t *testing.T) {
	s := newTestScanner(t, "M02*")
	img := newImage()
	ip := NewInterpreter(s, img)
	ip.handleGCode(10)
	assert.Equal(t, InterpLinear, img.Context.Interpolation)
	assert.NotEmpty(t, img.Messages())
}

func TestHandleGCode_G74DoesNotResetRegionBuffer(t *testing.T) {
	// Open Question 1 (spec.md §9): a quadrant-mode change mid-region must
	// not disturb vertices already accumulated for the current contour.
	s := newTestScanner(t, "M02*")
	img := newImage()
	ip := NewInterpreter(s, img)
	ip.handleGCode(36) // start region
	ip.regionVertices = append(ip.regionVertices, Point{0, 0}, Point{1000, 0})
	ip.handleGCode(74) // G74: single-quadrant, linear reset
	assert.Equal(t, []Point{{0, 0}, {1000, 0}}, ip.regionVertices)
	assert.True(t, img.Context.PolygonRegion)
	assert.Equal(t, InterpLinear, img.Context.Interpolation)
	assert.Equal(t, QuadrantSingle, img.Context.QuadrantMode)
}

func TestCloseRegion_WithoutG36Warns(t *testing.T) {
	s := newTestScanner(t, "M02*")
	img := newImage()
	ip := NewInterpreter(s, img)
	ip.closeRegion()
	assert.NotEmpty(t, img.Messages())
	assert.Empty(t, img.Items())
}

func TestAbs64(t *testing.T) {
	assert.Equal(t, int64(5), abs64(-5))
	assert.Equal(t, int64(5), abs64(5))
}

func TestDistSq(t *testing.T) {
	assert.Equal(t, int64(25), distSq(Point{0, 0}, Point{3, 4}))
}
