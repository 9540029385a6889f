package fingerprint

const (
	// MaxScore is the score of entirely different frames.
	MaxScore = 100.0

	// DefaultThreshold is the change gate: scores below it are treated as
	// the same frame.
	DefaultThreshold = 1.0

	// HashBits is the length of a perception hash.
	HashBits = 64

	// window is the SSIM sliding window edge.
	window = 7
)

var (
	c1 = (0.01 * 255) * (0.01 * 255)
	c2 = (0.03 * 255) * (0.03 * 255)
)
