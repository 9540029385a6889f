// Package fingerprint reduces captured frames to grayscale and scores how much
// two of them differ, as a percentage.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"strings"
	"sync"

	"github.com/corona10/goimagehash"
)

// Fingerprint is the grayscale reduction of a frame.
type Fingerprint struct {
	gray *image.Gray

	hashOnce sync.Once
	hash     *goimagehash.ImageHash
	hashErr  error
}

// New converts img to 8-bit luma (color.GrayModel, ITU-R 601).
func New(img image.Image) *Fingerprint {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return &Fingerprint{gray: gray}
}

// Width returns the fingerprint width in pixels.
func (f *Fingerprint) Width() int { return f.gray.Rect.Dx() }

// Height returns the fingerprint height in pixels.
func (f *Fingerprint) Height() int { return f.gray.Rect.Dy() }

// Gray exposes the luma plane. Callers must not modify it.
func (f *Fingerprint) Gray() *image.Gray { return f.gray }

func (f *Fingerprint) perceptionHash() (*goimagehash.ImageHash, error) {
	f.hashOnce.Do(func() {
		f.hash, f.hashErr = goimagehash.PerceptionHash(f.gray)
	})
	return f.hash, f.hashErr
}

// Method selects the scoring algorithm.
type Method int

const (
	SSIM  Method = iota // structural similarity
	PHash               // perceptual hash Hamming distance
)

func (m Method) String() string {
	return [...]string{"ssim", "phash"}[m]
}

// ParseMethod parses a DIFF_METHOD value.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ssim", "":
		return SSIM, nil
	case "phash":
		return PHash, nil
	}
	return SSIM, fmt.Errorf("unknown diff method %q", s)
}

// Diff scores a against b with SSIM.
func Diff(a, b *Fingerprint) float64 {
	return SSIM.Diff(a, b)
}

// Diff returns the percentage difference in [0, 100]. Mismatched dimensions
// score 100 and byte-identical fingerprints score 0 regardless of method.
func (m Method) Diff(a, b *Fingerprint) float64 {
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return MaxScore
	}
	if bytes.Equal(a.gray.Pix, b.gray.Pix) {
		return 0
	}

	var score float64
	switch m {
	case SSIM:
		score = (1 - structuralSimilarity(a.gray, b.gray)) * MaxScore
	case PHash:
		score = hashScore(a, b)
	}
	return clamp(score)
}

func hashScore(a, b *Fingerprint) float64 {
	ha, err := a.perceptionHash()
	if err != nil {
		return MaxScore
	}
	hb, err := b.perceptionHash()
	if err != nil {
		return MaxScore
	}
	dist, err := ha.Distance(hb)
	if err != nil {
		return MaxScore
	}
	return float64(dist) / HashBits * MaxScore
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > MaxScore:
		return MaxScore
	}
	return v
}
