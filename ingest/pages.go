package ingest

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfcpu otherwise installs its config, fonts and certificates under the
// user config dir on first use.
var disablePDFConfigDir = sync.OnceFunc(api.DisableConfigDir)

// Document is an open paged document that renders pages to images.
// Page indexes are 0-based.
type Document interface {
	NumPage() int
	ImageDPI(page int, dpi float64) (image.Image, error)
	Close() error
}

// DocumentOpener opens a paged document for rendering
type DocumentOpener func(path string) (Document, error)

type fitzDocument struct {
	doc *fitz.Document
}

// OpenFitzDocument opens a PDF with MuPDF
func OpenFitzDocument(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &fitzDocument{doc: doc}, nil
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) ImageDPI(page int, dpi float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}

// PageCount returns the number of pages of a paged document. Non-PDF input
// is a single page. If the count cannot be determined the input is assumed to
// have one page.
func (p *Pipeline) PageCount(path string) int {
	if DetectFormat(path) != FormatPDF {
		return 1
	}
	n, err := countPDFPages(path)
	if err != nil || n < 1 {
		p.logger.Warn("could not count pages, assuming one", "path", path, "error", err)
		return 1
	}
	return n
}

func countPDFPages(path string) (int, error) {
	disablePDFConfigDir()

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, model.NewDefaultConfiguration())
}

// ingestDocument renders the requested pages of a PDF and runs the raster
// pipeline on each. Page i of a multi-page document becomes floor
// FloorLevel+i with its zone names prefixed by the floor.
func (p *Pipeline) ingestDocument(req Request) (*Result, error) {
	doc, err := p.cfg.OpenDocument(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening document: %v", ErrUnreadableInput, err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total < 1 {
		return nil, ErrNoPages
	}

	if req.Page != 0 {
		if req.Page < 1 || req.Page > total {
			return nil, fmt.Errorf("%w: page %d, document has %d", ErrInvalidPage, req.Page, total)
		}
		return p.ingestPage(doc, req.Page-1, req)
	}

	if total == 1 {
		return p.ingestPage(doc, 0, req)
	}

	combined := NewResult()
	for i := 0; i < total; i++ {
		floor := req.FloorLevel + i
		pageReq := req
		pageReq.FloorLevel = floor

		res, err := p.ingestPage(doc, i, pageReq)
		if err != nil {
			return nil, err
		}
		for j := range res.Zones {
			res.Zones[j].Name = fmt.Sprintf("F%d %s", floor, res.Zones[j].Name)
		}
		combined.Append(res)
	}

	p.logger.Info("ingested multi-page document",
		"path", req.Path,
		"pages", total,
		"zones", len(combined.Zones),
		"connections", len(combined.Connections),
		"perch_points", len(combined.PerchPoints))

	return combined, nil
}

// ingestPage renders one 0-based page and runs the raster pipeline on it
func (p *Pipeline) ingestPage(doc Document, page int, req Request) (*Result, error) {
	img, err := doc.ImageDPI(page, p.cfg.RenderDPI)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering page %d: %v", ErrUnreadableInput, page+1, err)
	}

	ex := p.ExtractImage(img, req.Scale)
	res := p.Assemble(ex, req.VenueLat, req.VenueLon, req.FloorLevel)
	p.logger.Debug("ingested page", "page", page+1, "floor", req.FloorLevel, "zones", len(res.Zones))
	return res, nil
}
