package render

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gerbercore/gerber"
)

func TestComputeBounds_EmptyItemsReturnsPlaceholder(t *testing.T) {
	b := ComputeBounds(nil)
	assert.Equal(t, int64(0), b.MinX)
	assert.Equal(t, gerber.UnitsMM.ToInternal(10), b.MaxX)
}

func TestComputeBounds_PadsAroundItems(t *testing.T) {
	items := []gerber.DrawItem{
		{Kind: gerber.ItemSegment, Start: gerber.Point{X: 0, Y: 0}, End: gerber.Point{X: 1000, Y: 1000}},
	}
	b := ComputeBounds(items)
	assert.Equal(t, -paddingUnits, b.MinX)
	assert.Equal(t, int64(1000)+paddingUnits, b.MaxX)
}

func TestRender_FlashProducesForegroundPixelAtCenter(t *testing.T) {
	apertures := gerber.NewApertureTable()
	apertures.Define(&gerber.Aperture{DCode: 10, Shape: gerber.ShapeCircle, Size: gerber.Size{X: 2000, Y: 2000}, Defined: true})

	items := []gerber.DrawItem{
		{Kind: gerber.ItemFlash, Position: gerber.Point{X: 5000, Y: 5000}, ApertureID: 10, ShapeTag: gerber.TagRound},
	}
	bounds := Bounds{MinX: 0, MinY: 0, MaxX: 10000, MaxY: 10000}
	opts := DefaultOptions()
	opts.DPI = 200

	img := Render(items, apertures, nil, bounds, opts)
	require.NotNil(t, img)

	cx := int(5000 * opts.DPI / float64(gerber.UnitsPerInch))
	cy := int((10000 - 5000) * opts.DPI / float64(gerber.UnitsPerInch))
	r, g, b, _ := img.At(cx, cy).RGBA()
	wr, wg, wb, _ := color.White.RGBA()
	assert.Equal(t, wr, r)
	assert.Equal(t, wg, g)
	assert.Equal(t, wb, b)
}

func TestRender_ClearPolarityFlashPaintsBackground(t *testing.T) {
	apertures := gerber.NewApertureTable()
	apertures.Define(&gerber.Aperture{DCode: 10, Shape: gerber.ShapeCircle, Size: gerber.Size{X: 2000, Y: 2000}, Defined: true})

	items := []gerber.DrawItem{
		{Kind: gerber.ItemFlash, Position: gerber.Point{X: 5000, Y: 5000}, ApertureID: 10, ShapeTag: gerber.TagRound, Polarity: true},
	}
	bounds := Bounds{MinX: 0, MinY: 0, MaxX: 10000, MaxY: 10000}
	opts := DefaultOptions()
	opts.DPI = 200

	img := Render(items, apertures, nil, bounds, opts)
	cx := int(5000 * opts.DPI / float64(gerber.UnitsPerInch))
	cy := int((10000 - 5000) * opts.DPI / float64(gerber.UnitsPerInch))
	r, g, b, _ := img.At(cx, cy).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
}

func TestExtrudeSolidPixels_ThenWriteSTL(t *testing.T) {
	apertures := gerber.NewApertureTable()
	apertures.Define(&gerber.Aperture{DCode: 10, Shape: gerber.ShapeRect, Size: gerber.Size{X: 2000, Y: 2000}, Defined: true})
	items := []gerber.DrawItem{
		{Kind: gerber.ItemFlash, Position: gerber.Point{X: 5000, Y: 5000}, ApertureID: 10, ShapeTag: gerber.TagRect},
	}
	bounds := Bounds{MinX: 0, MinY: 0, MaxX: 10000, MaxY: 10000}
	opts := DefaultOptions()
	opts.DPI = 100
	img := Render(items, apertures, nil, bounds, opts)

	triangles := ExtrudeSolidPixels(img, ExtrudeOptions{DPI: opts.DPI, Height: 0.2})
	assert.NotEmpty(t, triangles)

	var buf bytes.Buffer
	require.NoError(t, WriteSTL(&buf, "stencil", triangles))
	assert.Contains(t, buf.String(), "solid stencil")
	assert.Contains(t, buf.String(), "endsolid stencil")
}
