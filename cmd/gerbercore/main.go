// Command gerbercore drives the core's parse → render → mesh pipeline from
// the command line, replacing the teacher's flag-based main() with a cobra
// command tree (the same cobra shape saferwall-pe/cmd/pedumper.go uses).
// This is the only place in the module that logs or touches the filesystem
// outside of gerber.Parse itself: the core never does either.
package main

import (
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gerbercore/gerber"
	"gerbercore/render"
)

var (
	cfgPath     string
	dpiFlag     float64
	heightFlag  float64
	keepPNGFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gerbercore",
		Short: "Gerber RS-274X interpreter, renderer, and stencil mesh exporter",
		Long:  "gerbercore parses an RS-274X/RS-274D Gerber file, rasterizes the resulting draw items, and extrudes the raster into an STL stencil mesh.",
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a TOML config file (dpi, segs_per_turn, stencil_height_mm, keep_png)")

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("gerbercore 0.1.0")
		},
	}

	var parseCmd = &cobra.Command{
		Use:   "parse <gerber-file>",
		Short: "Parse a Gerber file and print its warning/error messages",
		Args:  cobra.ExactArgs(1),
		Run:   runParse,
	}

	var stencilCmd = &cobra.Command{
		Use:   "stencil <gerber-file>",
		Short: "Parse, render, and extrude a Gerber file into an STL stencil",
		Args:  cobra.ExactArgs(1),
		Run:   runStencil,
	}
	stencilCmd.Flags().Float64Var(&dpiFlag, "dpi", 0, "render resolution in dots per inch (overrides config)")
	stencilCmd.Flags().Float64VarP(&heightFlag, "height", "H", 0, "stencil height in mm (overrides config)")
	stencilCmd.Flags().BoolVarP(&keepPNGFlag, "keep-png", "k", false, "also write the intermediate raster as a PNG")

	rootCmd.AddCommand(versionCmd, parseCmd, stencilCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("gerbercore: %v", err)
	}
}

func runParse(cmd *cobra.Command, args []string) {
	img, err := gerber.Parse(args[0])
	if err != nil {
		log.Fatalf("parsing %s: %v", args[0], err)
	}
	for _, m := range img.Messages() {
		fmt.Println(m.String())
	}
	fmt.Printf("%d draw items, %d apertures, %d macros\n", len(img.Items()), img.Apertures.DefinedCount(), len(img.Macros))
}

func runStencil(cmd *cobra.Command, args []string) {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("loading config %s: %v", cfgPath, err)
	}
	if dpiFlag > 0 {
		cfg.DPI = dpiFlag
	}
	if heightFlag > 0 {
		cfg.StencilMM = heightFlag
	}
	if keepPNGFlag {
		cfg.KeepPNG = true
	}

	gerberPath := args[0]
	log.Printf("parsing %s", gerberPath)
	img, err := gerber.Parse(gerberPath)
	if err != nil {
		log.Fatalf("parsing %s: %v", gerberPath, err)
	}
	for _, m := range img.Messages() {
		if m.Severity == gerber.SeverityWarning {
			log.Printf("warning: %s", m)
		}
	}

	log.Println("rendering to internal image")
	bounds := render.ComputeBounds(img.Items())
	opts := render.Options{DPI: cfg.DPI, SegsPerTurn: cfg.SegsPerTurn, Background: render.DefaultOptions().Background, Foreground: render.DefaultOptions().Foreground}
	raster := render.Render(img.Items(), img.Apertures, img.Macros, bounds, opts)

	outBase := strings.TrimSuffix(gerberPath, filepath.Ext(gerberPath))
	if cfg.KeepPNG {
		pngPath := outBase + ".png"
		log.Printf("saving intermediate PNG to %s", pngPath)
		f, err := os.Create(pngPath)
		if err != nil {
			log.Printf("warning: could not create PNG file: %v", err)
		} else {
			if err := png.Encode(f, raster); err != nil {
				log.Printf("warning: could not encode PNG: %v", err)
			}
			f.Close()
		}
	}

	log.Println("generating mesh")
	triangles := render.ExtrudeSolidPixels(raster, render.ExtrudeOptions{DPI: cfg.DPI, Height: cfg.StencilMM})

	outPath := outBase + ".stl"
	out, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("creating %s: %v", outPath, err)
	}
	defer out.Close()
	if err := render.WriteSTL(out, "stencil", triangles); err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}
	log.Printf("wrote %s (%d triangles)", outPath, len(triangles))
}
