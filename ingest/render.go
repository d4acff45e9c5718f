package ingest

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ZoneColors are the fill colors per zone type (premultiplied alpha)
var ZoneColors = map[string]color.RGBA{
	ZoneCloset:    {120, 120, 120, 160},
	ZoneRoom:      {60, 90, 140, 140},
	ZoneCorridor:  {150, 130, 40, 140},
	ZoneLobby:     {40, 120, 60, 140},
	ZoneEntrance:  {150, 60, 40, 140},
	ZoneStairwell: {100, 40, 120, 140},
	ZoneCustom:    {90, 90, 90, 140},
}

var (
	outlineColor = color.RGBA{30, 30, 30, 255}
	doorColor    = color.RGBA{200, 30, 30, 255}
	perchColor   = color.RGBA{20, 20, 160, 255}
	adjColor     = color.RGBA{120, 120, 120, 255}
)

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// OverlayRenderer draws an ingestion result for operator review: zone
// outlines filled by type, connections and perch points.
type OverlayRenderer struct {
	Result      *Result
	Scale       float64 // canvas units per meter
	Padding     float64 // meters
	LabelZones  bool
	frame       Frame
	bound       orb.Bound
	hasGeometry bool
}

// NewOverlayRenderer creates a renderer with default settings
func NewOverlayRenderer(res *Result) *OverlayRenderer {
	r := &OverlayRenderer{
		Result:     res,
		Scale:      20.0,
		Padding:    1.0,
		LabelZones: true,
	}
	r.computeBounds()
	return r
}

// computeBounds projects the result into a local metric frame anchored at
// its first zone centroid.
func (r *OverlayRenderer) computeBounds() {
	if r.Result == nil || len(r.Result.Zones) == 0 {
		return
	}
	z := r.Result.Zones[0]
	r.frame = NewFrame(z.CentroidLat, z.CentroidLon, orb.Point{})

	first := true
	extend := func(p orb.Point) {
		if first {
			r.bound = orb.Bound{Min: p, Max: p}
			first = false
			return
		}
		r.bound = r.bound.Extend(p)
	}
	for _, zone := range r.Result.Zones {
		for _, c := range zone.Polygon {
			extend(r.frame.ToPlanar(c[0], c[1]))
		}
	}
	for _, pp := range r.Result.PerchPoints {
		extend(r.frame.ToPlanar(pp.PositionLat, pp.PositionLon))
	}
	r.hasGeometry = !first
}

func (r *OverlayRenderer) size() (float64, float64) {
	if !r.hasGeometry {
		return 2 * r.Padding * r.Scale, 2 * r.Padding * r.Scale
	}
	return (r.bound.Max[0] - r.bound.Min[0] + 2*r.Padding) * r.Scale,
		(r.bound.Max[1] - r.bound.Min[1] + 2*r.Padding) * r.Scale
}

// toCanvas converts [lat, lon] to canvas coordinates (y up)
func (r *OverlayRenderer) toCanvas(lat, lon float64) (float64, float64) {
	p := r.frame.ToPlanar(lat, lon)
	return (p[0] - r.bound.Min[0] + r.Padding) * r.Scale,
		(p[1] - r.bound.Min[1] + r.Padding) * r.Scale
}

// RenderToSVG writes the overlay as SVG
func (r *OverlayRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the overlay as PNG with one pixel per canvas unit
func (r *OverlayRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.size()
	rast := rasterizer.New(width, height, canvas.DPMM(1), canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)

	if r.LabelZones && r.Result != nil {
		bounds := rast.Bounds()
		for _, z := range r.Result.Zones {
			cx, cy := r.toCanvas(z.CentroidLat, z.CentroidLon)
			row := bounds.Dy() - int(math.Round(cy))
			col := int(math.Round(cx)) - len(z.Name)*7/2
			drawText(rast, col, row, z.Name, outlineColor)
		}
	}

	return png.Encode(w, rast)
}

// RenderToFile writes SVG or PNG depending on the file extension
func (r *OverlayRenderer) RenderToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating overlay file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		err = r.RenderToSVG(f)
	case ".png":
		err = r.RenderToPNG(f)
	default:
		return fmt.Errorf("unsupported overlay extension %q (want .svg or .png)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("rendering overlay: %w", err)
	}
	return nil
}

func (r *OverlayRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	if r.Result == nil || !r.hasGeometry {
		return
	}

	for _, z := range r.Result.Zones {
		fill, ok := ZoneColors[z.Type]
		if !ok {
			fill = ZoneColors[ZoneCustom]
		}
		zoneStyle := canvas.DefaultStyle
		zoneStyle.Fill = canvas.Paint{Color: fill}
		zoneStyle.Stroke = canvas.Paint{Color: outlineColor}
		zoneStyle.StrokeWidth = 0.05 * r.Scale

		cp := &canvas.Path{}
		for i, c := range z.Polygon {
			x, y := r.toCanvas(c[0], c[1])
			if i == 0 {
				cp.MoveTo(x, y)
			} else {
				cp.LineTo(x, y)
			}
		}
		cp.Close()
		renderer.RenderPath(cp, zoneStyle, canvas.Identity)
	}

	adjStyle := canvas.DefaultStyle
	adjStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	adjStyle.Stroke = canvas.Paint{Color: adjColor}
	adjStyle.StrokeWidth = 0.03 * r.Scale
	adjStyle.Dashes = []float64{0.2 * r.Scale, 0.2 * r.Scale}

	doorStyle := canvas.DefaultStyle
	doorStyle.Fill = canvas.Paint{Color: doorColor}
	doorStyle.Stroke = canvas.Paint{Color: canvas.Transparent}

	for _, c := range r.Result.Connections {
		if c.Position != nil {
			x, y := r.toCanvas(c.Position[0], c.Position[1])
			renderer.RenderPath(canvas.Circle(0.25*r.Scale).Translate(x, y), doorStyle, canvas.Identity)
			continue
		}
		from, okFrom := r.Result.FindZone(c.FromZoneID)
		to, okTo := r.Result.FindZone(c.ToZoneID)
		if !okFrom || !okTo {
			continue
		}
		line := &canvas.Path{}
		line.MoveTo(r.toCanvas(from.CentroidLat, from.CentroidLon))
		line.LineTo(r.toCanvas(to.CentroidLat, to.CentroidLon))
		renderer.RenderPath(line, adjStyle, canvas.Identity)
	}

	perchStyle := canvas.DefaultStyle
	perchStyle.Fill = canvas.Paint{Color: perchColor}
	perchStyle.Stroke = canvas.Paint{Color: canvas.White}
	perchStyle.StrokeWidth = 0.02 * r.Scale

	normalStyle := canvas.DefaultStyle
	normalStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	normalStyle.Stroke = canvas.Paint{Color: perchColor}
	normalStyle.StrokeWidth = 0.04 * r.Scale

	for _, pp := range r.Result.PerchPoints {
		x, y := r.toCanvas(pp.PositionLat, pp.PositionLon)
		renderer.RenderPath(canvas.Circle(0.15*r.Scale).Translate(x, y), perchStyle, canvas.Identity)

		// Wall normal tick pointing into the zone
		if pp.WallNormal != nil {
			tick := &canvas.Path{}
			tick.MoveTo(x, y)
			tick.LineTo(x+pp.WallNormal[0]*0.5*r.Scale, y+pp.WallNormal[1]*0.5*r.Scale)
			renderer.RenderPath(tick, normalStyle, canvas.Identity)
		}
	}
}

// drawText renders text onto an image with its baseline at (x, y)
func drawText(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
