// Package ingest turns architectural floor plans (DXF drawings, PDF pages and
// raster images) into zones, zone connections and perch points positioned in
// geographic coordinates around a venue anchor.
//
// Usage:
//
//	p := ingest.New(ingest.DefaultConfig())
//	res, err := p.Ingest(ingest.Request{
//		Path:     "/tmp/plan.pdf",
//		VenueLat: 40.7128,
//		VenueLon: -74.0060,
//	})
//
// Every call is synchronous and independent: the pipeline keeps no state
// between calls and never writes to disk or network.
package ingest

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	// ErrUnreadableInput is returned when the source cannot be decoded
	ErrUnreadableInput = errors.New("unreadable floor plan input")

	// ErrNoPages is returned when a paged document yields no pages
	ErrNoPages = errors.New("no pages extracted from document")

	// ErrInvalidPage is returned for a page selector outside the document
	ErrInvalidPage = errors.New("page number out of range")
)

// Request describes one ingestion call
type Request struct {
	// Path is a local file the caller owns and cleans up
	Path string

	// Format selects the pipeline; empty means detect from the file
	Format Format

	VenueLat float64
	VenueLon float64

	// FloorLevel is assigned to every zone (first page for multi-page input)
	FloorLevel int

	// Scale in meters per drawing unit or pixel; zero means calibrate
	Scale float64

	// Page is a 1-indexed page selector for paged documents; zero means all
	Page int
}

// Pipeline runs floor plan ingestion
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	newID  func() string
}

// New creates a Pipeline with the given configuration
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
		newID:  uuid.NewString,
	}
}

// Config returns the effective configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Ingest runs exactly one of the vector, raster or paged pipelines and
// assembles the result. An input in which nothing is detected returns an
// empty result and a nil error.
func (p *Pipeline) Ingest(req Request) (*Result, error) {
	format := ResolveFormat(req.Path, req.Format)
	p.logger.Debug("ingesting floor plan", "path", req.Path, "format", format, "floor", req.FloorLevel)

	switch format {
	case FormatDXF:
		ex, err := p.ExtractDXFFile(req.Path, req.Scale)
		if err != nil {
			return nil, err
		}
		return p.Assemble(ex, req.VenueLat, req.VenueLon, req.FloorLevel), nil

	case FormatPDF:
		return p.ingestDocument(req)

	case FormatImage:
		img, err := loadImage(req.Path)
		if err != nil {
			return nil, err
		}
		ex := p.ExtractImage(img, req.Scale)
		return p.Assemble(ex, req.VenueLat, req.VenueLon, req.FloorLevel), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
