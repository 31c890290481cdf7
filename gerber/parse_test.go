package gerber

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGerber(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.gbr")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// Scenario 1, spec.md §8: format + a single flash.
func TestParse_SingleFlash(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\n%ADD10C,0.050*%\nD10*\nX1000Y2000D03*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)
	assert.False(t, img.HasErrors())

	items := img.Items()
	require.Len(t, items, 1)
	flash := items[0]
	assert.Equal(t, ItemFlash, flash.Kind)
	assert.Equal(t, Point{10000, 20000}, flash.Position)
	assert.Equal(t, 10, flash.ApertureID)
	assert.Equal(t, TagRound, flash.ShapeTag)
	assert.False(t, flash.Polarity, "dark polarity: layer_negative XOR image_negative both false")

	ap := img.Apertures.Get(10)
	require.NotNil(t, ap)
	assert.Equal(t, int64(500), ap.Size.X)
}

// Scenario 2, spec.md §8: metric integer-form coordinates. The 0.010mm/0.020mm
// literals this format decodes to convert to ~3.9/~7.9 internal units (see
// TestDecodeAxis_MetricMilli for why this isn't the spec prose's
// "~3937/~7874" figure).
func TestParse_MetricIntegerForm(t *testing.T) {
	path := writeGerber(t, "%FSLAX33Y33*%\n%MOMM*%\n%ADD11C,1.000*%\nD11*\nX000010Y000020D03*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)

	items := img.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].Position.X)
	assert.Equal(t, int64(7), items[0].Position.Y)
}

// Scenario 3, spec.md §8: a linear stroke.
func TestParse_LinearStroke(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\n%ADD12C,0.010*%\nG01*\nD12*\nX0Y0D02*\nX1000Y0D01*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)

	items := img.Items()
	require.Len(t, items, 1)
	seg := items[0]
	assert.Equal(t, ItemSegment, seg.Kind)
	assert.Equal(t, Point{0, 0}, seg.Start)
	assert.Equal(t, Point{10000, 0}, seg.End)
	assert.Equal(t, int64(100), seg.Width)
}

// Scenario 4, spec.md §8: a multi-quadrant counterclockwise arc.
func TestParse_MultiQuadrantArc(t *testing.T) {
	path := writeGerber(t, "%FSLAX24Y24*%\n%MOIN*%\n%ADD13C,0.010*%\nG75*\nG03*\nD13*\nX0Y0D02*\nX10000Y10000I10000J0D01*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)

	items := img.Items()
	require.Len(t, items, 1)
	arc := items[0]
	assert.Equal(t, ItemArc, arc.Kind)
	assert.Equal(t, Point{0, 0}, arc.Start)
	assert.Equal(t, Point{10000, 10000}, arc.End)
	assert.Equal(t, Point{10000, 0}, arc.Center)
	assert.False(t, arc.CW)
	assert.True(t, arc.MultiQuadrant)
}

// Scenario 5, spec.md §8: a polygon region with no draws for the interior D01s.
func TestParse_PolygonRegion(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\nG36*\nX0Y0D02*\nX1000Y0D01*\nX1000Y1000D01*\nX0Y1000D01*\nG37*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)

	items := img.Items()
	require.Len(t, items, 1)
	region := items[0]
	assert.Equal(t, ItemRegion, region.Kind)
	assert.Equal(t, []Point{{0, 0}, {10000, 0}, {10000, 10000}, {0, 10000}}, region.Polygon)
}

// Scenario 6, spec.md §8: an aperture macro with arithmetic and a local assignment.
func TestParse_MacroArithmetic(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\n"+
		"%AMTHERM*$4=$3/2*21,1,$1-$3,$2-$3,-$1/2-$4,-$2/2-$4,0*%\n"+
		"%ADD20THERM,0.100X0.200X0.010*%\nD20*\nX0Y0D03*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)

	macro, ok := img.Macros["THERM"]
	require.True(t, ok)

	ap := img.Apertures.Get(20)
	require.NotNil(t, ap)
	assert.Equal(t, ShapeMacro, ap.Shape)
	assert.Equal(t, "THERM", ap.MacroName)
	assert.Equal(t, []float64{0.100, 0.200, 0.010}, ap.Actuals)

	var warnings []string
	evaluated := macro.Evaluate(ap.Actuals, func(msg string) { warnings = append(warnings, msg) })
	require.Len(t, evaluated, 1)
	assert.Empty(t, warnings)

	prim := evaluated[0]
	assert.Equal(t, PrimLineCenter, prim.Code)
	require.Len(t, prim.Values, 6)
	assert.InDelta(t, 1, prim.Values[0], 1e-9)      // exposure on
	assert.InDelta(t, 0.090, prim.Values[1], 1e-9)  // $1-$3 = 0.100-0.010
	assert.InDelta(t, 0.190, prim.Values[2], 1e-9)  // $2-$3 = 0.200-0.010
	assert.InDelta(t, -0.055, prim.Values[3], 1e-9) // -$1/2-$4 = -0.05-0.005
	assert.InDelta(t, -0.105, prim.Values[4], 1e-9) // -$2/2-$4 = -0.1-0.005
	assert.InDelta(t, 0, prim.Values[5], 1e-9)

	items := img.Items()
	require.Len(t, items, 1)
	assert.Equal(t, ItemFlash, items[0].Kind)
	assert.Equal(t, TagMacro, items[0].ShapeTag)
}

// A multi-quadrant D01 that returns to its starting point is a full circle,
// not a degenerate zero-length arc.
func TestParse_FullCircleEmitsCircleItem(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\n%ADD14C,0.010*%\nG75*\nG03*\nD14*\n"+
		"X1000Y0D02*\nX1000Y0I-1000J0D01*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)

	items := img.Items()
	require.Len(t, items, 1)
	circle := items[0]
	assert.Equal(t, ItemCircle, circle.Kind)
	assert.Equal(t, Point{0, 0}, circle.Center)
	assert.Equal(t, int64(10000), circle.Radius)
}

func TestParse_DarkVsClearPolarity(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\n%ADD10C,0.010*%\n%LPC*%\nD10*\nX0Y0D03*\n%LPD*%\nX1000Y0D03*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)

	items := img.Items()
	require.Len(t, items, 2)
	assert.True(t, items[0].Polarity, "LPC = clear = negative")
	assert.False(t, items[1].Polarity, "LPD = dark = positive")
}

func TestParse_DCodeOutOfRangeWarns(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\nD05*\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)
	assert.False(t, img.HasErrors(), "reserved D-code is a warning, not an error")
	require.NotEmpty(t, img.Messages())
}

func TestParse_ADOutOfRangeDropped(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\n%ADD1000C,0.010*%\nM02*")
	img, err := Parse(path)
	require.NoError(t, err)
	assert.Nil(t, img.Apertures.Get(1000))
	require.NotEmpty(t, img.Messages())
}

func TestParse_TruncatedMacroIsFatal(t *testing.T) {
	path := writeGerber(t, "%FSLAX23Y23*%\n%MOIN*%\n%AMBAD*1,1,0.5,0,0*")
	_, err := Parse(path)
	require.Error(t, err)
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
}

func TestParse_IncludeFile(t *testing.T) {
	dir := t.TempDir()
	incPath := filepath.Join(dir, "inc.gbr")
	require.NoError(t, os.WriteFile(incPath, []byte("%ADD10C,0.010*%\n"), 0o644))
	mainPath := filepath.Join(dir, "main.gbr")
	require.NoError(t, os.WriteFile(mainPath, []byte(
		"%FSLAX23Y23*%\n%MOIN*%\n%IFinc.gbr*%\nD10*\nX0Y0D03*\nM02*"), 0o644))

	img, err := Parse(mainPath)
	require.NoError(t, err)
	assert.False(t, img.HasErrors())
	require.Len(t, img.Items(), 1)
}
