package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile string
	Input      string
	Format     string
	Lat        float64
	Lon        float64
	Floor      int
	Scale      float64
	Page       int
	OutputFile string
	RenderFile string
	Publish    bool
	VenueID    string
	PageCount  bool
	DetectOnly bool
	Verbose    bool
}

// Runner executes the CLI modes
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunDetect() error
	RunPageCount() error
	RunIngest() error
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("planingest", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to YAML configuration file (default: built-in heuristics)")
	fs.StringVar(&opts.Input, "input", "", "Floor plan file (DXF, PDF or image)")
	fs.StringVar(&opts.Format, "format", "", "Force input format: dxf, pdf or image (default: detect)")
	fs.Float64Var(&opts.Lat, "lat", 0, "Venue anchor latitude in decimal degrees")
	fs.Float64Var(&opts.Lon, "lon", 0, "Venue anchor longitude in decimal degrees")
	fs.IntVar(&opts.Floor, "floor", 0, "Floor level of the plan (first page for multi-page PDFs)")
	fs.Float64Var(&opts.Scale, "scale", 0, "Meters per drawing unit or pixel (default: calibrate)")
	fs.IntVar(&opts.Page, "page", 0, "1-indexed PDF page to ingest (default: all pages)")
	fs.StringVar(&opts.OutputFile, "output", "", "Write the result to this file (.geojson for GeoJSON, otherwise JSON)")
	fs.StringVar(&opts.RenderFile, "render", "", "Render an overlay of the result (.svg or .png)")
	fs.BoolVar(&opts.Publish, "publish", false, "Publish the result over MQTT (requires -venue)")
	fs.StringVar(&opts.VenueID, "venue", "", "Venue identifier used in MQTT topics")
	fs.BoolVar(&opts.PageCount, "page-count", false, "Print the page count of the input and exit")
	fs.BoolVar(&opts.DetectOnly, "detect", false, "Print the detected input format and exit")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "planingest version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.DetectOnly:
		return app.RunDetect()
	case opts.PageCount:
		return app.RunPageCount()
	case opts.Input == "":
		fmt.Fprintln(out, "No input given.")
		fmt.Fprintln(out, "Use -input plan.pdf -lat LAT -lon LON to ingest a floor plan")
		fmt.Fprintln(out, "Use -detect to print the detected format")
		fmt.Fprintln(out, "Use -page-count to print the number of pages")
		fmt.Fprintln(out, "Use -output result.geojson and -render overlay.svg to export")
		fmt.Fprintln(out, "Use -publish -venue ID to publish over MQTT")
		return nil
	}

	return app.RunIngest()
}

func main() {
	app := NewApp(os.Stdout)
	if err := run(os.Args[1:], os.Stdout, app); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("planingest: %v", err)
	}
}
