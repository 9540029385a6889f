// Package xhotkey registers global hotkeys with golang.design/x/hotkey.
package xhotkey

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	hk "github.com/GriffinCanCode/screenlingo/internal/hotkey"
)

// Listener forwards key-down events of the toggle and shutdown chords.
type Listener struct {
	toggle   *hotkey.Hotkey
	shutdown *hotkey.Hotkey
	events   chan hk.Action
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	closeErr error
}

// Register grabs both chords system-wide.
func Register(toggle, shutdown hk.Chord) (*Listener, error) {
	t, err := newHotkey(toggle)
	if err != nil {
		return nil, err
	}
	s, err := newHotkey(shutdown)
	if err != nil {
		return nil, err
	}

	if err := t.Register(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.HotkeyFailed, "register toggle hotkey").
			WithMetadata("chord", toggle.String())
	}
	if err := s.Register(); err != nil {
		_ = t.Unregister()
		return nil, apperrors.Wrap(err, apperrors.HotkeyFailed, "register shutdown hotkey").
			WithMetadata("chord", shutdown.String())
	}

	l := &Listener{
		toggle:   t,
		shutdown: s,
		events:   make(chan hk.Action, 4),
		done:     make(chan struct{}),
	}
	l.wg.Add(1)
	go l.forward()
	return l, nil
}

func (l *Listener) forward() {
	defer l.wg.Done()
	for {
		var a hk.Action
		select {
		case <-l.done:
			return
		case <-l.toggle.Keydown():
			a = hk.Toggle
		case <-l.shutdown.Keydown():
			a = hk.Shutdown
		}
		select {
		case l.events <- a:
		case <-l.done:
			return
		}
	}
}

// Events implements hotkey.Listener.
func (l *Listener) Events() <-chan hk.Action { return l.events }

// Close unregisters both chords. It is idempotent.
func (l *Listener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.wg.Wait()
		l.closeErr = errors.Join(l.toggle.Unregister(), l.shutdown.Unregister())
		close(l.events)
	})
	return l.closeErr
}

func newHotkey(c hk.Chord) (*hotkey.Hotkey, error) {
	key, ok := keys[c.Key]
	if !ok {
		return nil, apperrors.Newf(apperrors.HotkeyFailed, "key %q not available", c.Key)
	}
	var mods []hotkey.Modifier
	if c.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if c.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if c.Alt {
		mods = append(mods, modAlt)
	}
	if len(mods) == 0 {
		return nil, apperrors.New(apperrors.HotkeyFailed, fmt.Sprintf("chord %s has no modifier", c))
	}
	return hotkey.New(mods, key), nil
}
