package ingest

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayRenderer_SVG(t *testing.T) {
	r := NewOverlayRenderer(sampleResult(t))

	var buf bytes.Buffer
	require.NoError(t, r.RenderToSVG(&buf))

	out := buf.String()
	assert.True(t, strings.Contains(out, "<svg"), "missing svg root")
	assert.Contains(t, out, "<path")
}

func TestOverlayRenderer_PNG(t *testing.T) {
	r := NewOverlayRenderer(sampleResult(t))

	var buf bytes.Buffer
	require.NoError(t, r.RenderToPNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)

	// 8 m x 4 m of zones plus 1 m padding per side at 20 px/m
	b := img.Bounds()
	assert.InDelta(t, 200, b.Dx(), 2)
	assert.InDelta(t, 120, b.Dy(), 2)

	// Background corner stays white
	cr, cg, cb, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{cr, cg, cb})
}

func TestOverlayRenderer_EmptyResult(t *testing.T) {
	for _, res := range []*Result{nil, NewResult()} {
		r := NewOverlayRenderer(res)

		var buf bytes.Buffer
		require.NoError(t, r.RenderToPNG(&buf))
		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, 40, img.Bounds().Dx())

		buf.Reset()
		require.NoError(t, r.RenderToSVG(&buf))
	}
}

func TestOverlayRenderer_RenderToFile(t *testing.T) {
	r := NewOverlayRenderer(sampleResult(t))
	dir := t.TempDir()

	for _, name := range []string{"overlay.svg", "overlay.PNG"} {
		path := filepath.Join(dir, name)
		require.NoError(t, r.RenderToFile(path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	err := r.RenderToFile(filepath.Join(dir, "overlay.gif"))
	assert.ErrorContains(t, err, "unsupported overlay extension")
}
