package render

import (
	"fmt"
	"image"
	"io"
)

// Vertex is one 3D mesh vertex in millimeters, the unit the teacher's STL
// writer always used.
type Vertex struct {
	X, Y, Z float64
}

// Triangle is three vertices forming one mesh facet.
type Triangle [3]Vertex

// ExtrudeOptions controls the raster-to-mesh step (the teacher's
// StencilHeight/PixelToMM globals, now parameters instead of package state).
type ExtrudeOptions struct {
	DPI    float64 // must match the DPI used to Render the source image
	Height float64 // extrusion height in mm
}

func (o ExtrudeOptions) pixelToMM() float64 { return 25.4 / o.DPI }

// ExtrudeSolidPixels walks img row by row run-length-encoding solid
// (near-black) pixels and emits one box per run, the same optimization the
// teacher's GenerateMeshFromImage used instead of one box per pixel. Solid
// here means "stencil body" — opts.Height of material above that pixel.
func ExtrudeSolidPixels(img image.Image, opts ExtrudeOptions) []Triangle {
	bounds := img.Bounds()
	width, height := bounds.Max.X, bounds.Max.Y
	pxToMM := opts.pixelToMM()

	var triangles []Triangle
	for y := 0; y < height; y++ {
		startX := -1
		for x := 0; x < width; x++ {
			if isSolidPixel(img, x, y) {
				if startX == -1 {
					startX = x
				}
				continue
			}
			if startX != -1 {
				appendBox(&triangles, float64(startX)*pxToMM, float64(y)*pxToMM, float64(x-startX)*pxToMM, pxToMM, opts.Height)
				startX = -1
			}
		}
		if startX != -1 {
			appendBox(&triangles, float64(startX)*pxToMM, float64(y)*pxToMM, float64(width-startX)*pxToMM, pxToMM, opts.Height)
		}
	}
	return triangles
}

// isSolidPixel matches the teacher's threshold for "stencil body" pixels:
// near-black, tolerant of whatever gray a rasterizer's anti-aliasing leaves
// at shape edges.
func isSolidPixel(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r < 10000 && g < 10000 && b < 10000
}

func appendBox(triangles *[]Triangle, x, y, w, h, zHeight float64) {
	x0, y0 := x, y
	x1, y1 := x+w, y+h
	z0, z1 := 0.0, zHeight

	p000 := Vertex{x0, y0, z0}
	p100 := Vertex{x1, y0, z0}
	p110 := Vertex{x1, y1, z0}
	p010 := Vertex{x0, y1, z0}
	p001 := Vertex{x0, y0, z1}
	p101 := Vertex{x1, y0, z1}
	p111 := Vertex{x1, y1, z1}
	p011 := Vertex{x0, y1, z1}

	addQuad := func(a, b, c, d Vertex) {
		*triangles = append(*triangles, Triangle{a, b, c})
		*triangles = append(*triangles, Triangle{c, d, a})
	}

	addQuad(p000, p010, p110, p100) // bottom
	addQuad(p101, p111, p011, p001) // top
	addQuad(p000, p100, p101, p001) // front
	addQuad(p100, p110, p111, p101) // right
	addQuad(p110, p010, p011, p111) // back
	addQuad(p010, p000, p001, p011) // left
}

// WriteSTL writes triangles to w in ASCII STL. ASCII was the teacher's
// choice too ("Writing Binary STL is harder, ASCII is fine for this size")
// and meshes from a single PCB layer stay small enough that it still holds.
func WriteSTL(w io.Writer, name string, triangles []Triangle) error {
	if _, err := fmt.Fprintf(w, "solid %s\n", name); err != nil {
		return err
	}
	for _, t := range triangles {
		if _, err := fmt.Fprint(w, "facet normal 0 0 0\n  outer loop\n"); err != nil {
			return err
		}
		for _, v := range t {
			if _, err := fmt.Fprintf(w, "    vertex %f %f %f\n", v.X, v.Y, v.Z); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(w, "  endloop\nendfacet\n"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "endsolid %s\n", name)
	return err
}
