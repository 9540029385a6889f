package capture

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Region is a screen rectangle in the top,left,width,height form used by the
// configuration.
type Region struct {
	Top    int `yaml:"top"`
	Left   int `yaml:"left"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ParseRegion parses "top,left,width,height".
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q: want top,left,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	r := Region{Top: v[0], Left: v[1], Width: v[2], Height: v[3]}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Validate rejects empty or negatively placed regions.
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("region %s: width and height must be positive", r)
	}
	if r.Top < 0 || r.Left < 0 {
		return fmt.Errorf("region %s: top and left must not be negative", r)
	}
	return nil
}

// Rect converts to an image.Rectangle in screen coordinates.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Intersects reports whether r and o share at least one pixel.
func (r Region) Intersects(o Region) bool {
	return r.Rect().Overlaps(o.Rect())
}

// IsZero reports whether the region is unset.
func (r Region) IsZero() bool { return r == Region{} }

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.Top, r.Left, r.Width, r.Height)
}
