package ingest

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// mask is a binary raster; true marks a set pixel
type mask struct {
	w, h int
	pix  []bool
}

func newMask(w, h int) *mask {
	return &mask{w: w, h: h, pix: make([]bool, w*h)}
}

func (m *mask) at(x, y int) bool {
	if x < 0 || x >= m.w || y < 0 || y >= m.h {
		return false
	}
	return m.pix[y*m.w+x]
}

func (m *mask) set(x, y int, v bool) {
	m.pix[y*m.w+x] = v
}

func (m *mask) count() int {
	n := 0
	for _, v := range m.pix {
		if v {
			n++
		}
	}
	return n
}

func (m *mask) invert() *mask {
	out := newMask(m.w, m.h)
	for i, v := range m.pix {
		out.pix[i] = !v
	}
	return out
}

// toGray converts any decoded image to 8-bit grayscale with its origin at 0,0
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// gaussianKernel returns a normalized 1D kernel. A non-positive sigma is
// derived from the size the same way common vision libraries do.
func gaussianKernel(size int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	k := make([]float64, size)
	half := size / 2
	sum := 0.0
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianBlur applies a separable blur with replicated borders and returns
// the result rounded back to 8 bits.
func gaussianBlur(src []uint8, w, h, size int, sigma float64) []uint8 {
	k := gaussianKernel(size, sigma)
	half := size / 2

	clamp := func(v, hi int) int {
		return max(0, min(hi-1, v))
	}

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i, kv := range k {
				acc += kv * float64(src[y*w+clamp(x+i-half, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i, kv := range k {
				acc += kv * tmp[clamp(y+i-half, h)*w+x]
			}
			out[y*w+x] = uint8(math.Max(0, math.Min(255, math.Round(acc))))
		}
	}
	return out
}

// adaptiveThresholdInv marks a pixel as ink when it is at least c levels
// darker than the gaussian-weighted mean of its block neighbourhood.
func adaptiveThresholdInv(src []uint8, w, h, block int, c float64) *mask {
	mean := gaussianBlur(src, w, h, block, 0)
	delta := int(math.Ceil(c))
	out := newMask(w, h)
	for i := range src {
		out.pix[i] = int(src[i])-int(mean[i]) <= -delta
	}
	return out
}

// dilateRect grows set regions by a (2r+1)-square structuring element.
// Pixels outside the image never contribute.
func dilateRect(m *mask, r int) *mask {
	return rectPass(m, r, true)
}

// erodeRect shrinks set regions by a (2r+1)-square structuring element.
// Pixels outside the image count as set.
func erodeRect(m *mask, r int) *mask {
	return rectPass(m, r, false)
}

func rectPass(m *mask, r int, dilate bool) *mask {
	hit := func(v bool) bool { return v == dilate }
	outside := !dilate

	horiz := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			res := !dilate
			for dx := -r; dx <= r; dx++ {
				nx := x + dx
				v := outside
				if nx >= 0 && nx < m.w {
					v = m.pix[y*m.w+nx]
				}
				if hit(v) {
					res = dilate
					break
				}
			}
			horiz.pix[y*m.w+x] = res
		}
	}

	out := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			res := !dilate
			for dy := -r; dy <= r; dy++ {
				ny := y + dy
				v := outside
				if ny >= 0 && ny < m.h {
					v = horiz.pix[ny*m.w+x]
				}
				if hit(v) {
					res = dilate
					break
				}
			}
			out.pix[y*m.w+x] = res
		}
	}
	return out
}

// closeRect is dilation followed by erosion, repeated per iteration count
func closeRect(m *mask, r, iterations int) *mask {
	for range iterations {
		m = dilateRect(m, r)
	}
	for range iterations {
		m = erodeRect(m, r)
	}
	return m
}

// openRect is erosion followed by dilation, repeated per iteration count
func openRect(m *mask, r, iterations int) *mask {
	for range iterations {
		m = erodeRect(m, r)
	}
	for range iterations {
		m = dilateRect(m, r)
	}
	return m
}

// erodeDisk clears every set pixel that has an unset pixel within radius r.
// Pixels outside the image count as unset.
func erodeDisk(m *mask, r int) *mask {
	if r <= 0 {
		return m
	}
	var offsets [][2]int
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				offsets = append(offsets, [2]int{dx, dy})
			}
		}
	}

	out := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if !m.pix[y*m.w+x] {
				continue
			}
			keep := true
			for _, o := range offsets {
				if !m.at(x+o[0], y+o[1]) {
					keep = false
					break
				}
			}
			out.pix[y*m.w+x] = keep
		}
	}
	return out
}
