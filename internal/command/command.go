// Package command defines the closed set of display commands and the queue
// that carries them from background loops to the UI loop.
package command

import "fmt"

// Kind discriminates a Command.
type Kind int

const (
	Show Kind = iota
	Hide
	Stop
	RequestCapture
	ToggleVisibility
)

func (k Kind) String() string {
	switch k {
	case Show:
		return "show"
	case Hide:
		return "hide"
	case Stop:
		return "stop"
	case RequestCapture:
		return "request_capture"
	case ToggleVisibility:
		return "toggle_visibility"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command is a display command. Text is only meaningful for Show; HasText
// false means "show again with the current label".
type Command struct {
	Kind    Kind
	Text    string
	HasText bool
}

// ShowText shows the overlay with a new label.
func ShowText(text string) Command {
	return Command{Kind: Show, Text: text, HasText: true}
}

// ShowLast shows the overlay keeping the current label.
func ShowLast() Command { return Command{Kind: Show} }

// HideOverlay hides the overlay.
func HideOverlay() Command { return Command{Kind: Hide} }

// StopApp terminates the UI loop.
func StopApp() Command { return Command{Kind: Stop} }

// Capture asks the UI loop for a frame.
func Capture() Command { return Command{Kind: RequestCapture} }

// Toggle flips overlay visibility without consulting the mode flag. Hotkeys
// send ShowLast or HideOverlay instead so the flag and the window stay in step
// after the worker hides short text.
func Toggle() Command { return Command{Kind: ToggleVisibility} }

func (c Command) String() string {
	if c.Kind == Show && c.HasText {
		return fmt.Sprintf("show(%q)", c.Text)
	}
	return c.Kind.String()
}
