package web

import "time"

const (
	DefaultAddr = ":8765"

	// DefaultHistoryLimit is how many entries /api/history returns by default.
	DefaultHistoryLimit = 20

	// Outbound messages buffered per client before it is disconnected as too slow.
	ClientBuffer = 32

	WriteTimeout      = 2 * time.Second
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 3 * time.Second
)

// Message types sent to browser sources.
const (
	TypeShow  = "show"
	TypeHide  = "hide"
	TypeLabel = "label"
	TypeAlpha = "alpha"
	TypeClose = "close"
)
