package fingerprint

import "image"

// integral holds summed-area tables for one image pair.
type integral struct {
	stride                int
	sx, sy, sxx, syy, sxy []float64
}

func newIntegral(a, b *image.Gray) *integral {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	n := (w + 1) * (h + 1)
	t := &integral{
		stride: w + 1,
		sx:     make([]float64, n),
		sy:     make([]float64, n),
		sxx:    make([]float64, n),
		syy:    make([]float64, n),
		sxy:    make([]float64, n),
	}
	for y := 0; y < h; y++ {
		var rx, ry, rxx, ryy, rxy float64
		for x := 0; x < w; x++ {
			px := float64(a.Pix[y*a.Stride+x])
			py := float64(b.Pix[y*b.Stride+x])
			rx += px
			ry += py
			rxx += px * px
			ryy += py * py
			rxy += px * py

			i := (y+1)*t.stride + x + 1
			up := y*t.stride + x + 1
			t.sx[i] = t.sx[up] + rx
			t.sy[i] = t.sy[up] + ry
			t.sxx[i] = t.sxx[up] + rxx
			t.syy[i] = t.syy[up] + ryy
			t.sxy[i] = t.sxy[up] + rxy
		}
	}
	return t
}

// box sums table over [x0,x1) x [y0,y1).
func (t *integral) box(table []float64, x0, y0, x1, y1 int) float64 {
	return table[y1*t.stride+x1] - table[y0*t.stride+x1] - table[y1*t.stride+x0] + table[y0*t.stride+x0]
}

func (t *integral) windowSSIM(x0, y0, x1, y1 int) float64 {
	n := float64((x1 - x0) * (y1 - y0))
	mx := t.box(t.sx, x0, y0, x1, y1) / n
	my := t.box(t.sy, x0, y0, x1, y1) / n

	norm := 1.0
	if n > 1 {
		norm = n / (n - 1)
	}
	vx := norm * (t.box(t.sxx, x0, y0, x1, y1)/n - mx*mx)
	vy := norm * (t.box(t.syy, x0, y0, x1, y1)/n - my*my)
	cov := norm * (t.box(t.sxy, x0, y0, x1, y1)/n - mx*my)

	return ((2*mx*my + c1) * (2*cov + c2)) / ((mx*mx + my*my + c1) * (vx + vy + c2))
}

// structuralSimilarity returns the mean SSIM of two equally sized luma planes
// using a uniform window and sample covariance. Only windows lying fully
// inside the image contribute; images smaller than the window are scored as
// one global window.
func structuralSimilarity(a, b *image.Gray) float64 {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if w == 0 || h == 0 {
		return 1
	}
	t := newIntegral(a, b)

	if w < window || h < window {
		return t.windowSSIM(0, 0, w, h)
	}

	var sum float64
	count := 0
	for y := 0; y+window <= h; y++ {
		for x := 0; x+window <= w; x++ {
			sum += t.windowSSIM(x, y, x+window, y+window)
			count++
		}
	}
	return sum / float64(count)
}
