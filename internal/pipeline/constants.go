package pipeline

import "time"

const (
	DefaultFrameWait = 500 * time.Millisecond
	DefaultPaceDelay = 500 * time.Millisecond

	// MinTextRunes is the shortest trimmed recognition that is worth showing.
	MinTextRunes = 3
)
