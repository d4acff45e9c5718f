package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of the file header is inspected when the extension
// does not decide the format.
const sniffLen = 16

var (
	// ErrUnknownFormat is returned by ParseFormat for unrecognized names
	ErrUnknownFormat = errors.New("unknown floor plan format")

	dxfMarkers = [][]byte{[]byte("SECTION"), []byte("AutoCAD")}
)

var formatByExt = map[string]Format{
	".dxf":  FormatDXF,
	".dwg":  FormatDXF,
	".pdf":  FormatPDF,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".tif":  FormatImage,
	".tiff": FormatImage,
	".bmp":  FormatImage,
	".webp": FormatImage,
}

// ParseFormat converts a caller-declared format name into a Format.
// File extensions (with or without the dot) are accepted too.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case string(FormatDXF), string(FormatPDF), string(FormatImage):
		return Format(name), nil
	}
	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}
	if f, ok := formatByExt[name]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ResolveFormat trusts a declared format and falls back to detection
func ResolveFormat(path string, declared Format) Format {
	if declared != "" {
		return declared
	}
	return DetectFormat(path)
}

// DetectFormat decides the pipeline for a file from its extension, then its
// first bytes. Anything unrecognized is treated as an image so that a
// pipeline is always selected.
func DetectFormat(path string) Format {
	if f, ok := formatByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return f
	}

	header, err := readHeader(path, sniffLen)
	if err != nil {
		return FormatImage
	}
	return sniffFormat(header)
}

// sniffFormat classifies a file header
func sniffFormat(header []byte) Format {
	for _, marker := range dxfMarkers {
		if bytes.Contains(header, marker) {
			return FormatDXF
		}
	}
	if mimetype.Detect(header).Is("application/pdf") {
		return FormatPDF
	}
	return FormatImage
}

func readHeader(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}
