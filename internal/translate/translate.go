// Package translate defines the translation collaborator and its adapters.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/resilience"
)

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Func adapts a function to Translator.
type Func func(ctx context.Context, text, source, target string) (string, error)

// Translate implements Translator.
func (f Func) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

// Passthrough returns its input unchanged. Used when no translator is configured.
type Passthrough struct{}

// Translate implements Translator.
func (Passthrough) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

// Guarded bounds every call with a timeout and trips a circuit breaker after
// repeated failures so a dead backend costs nothing per cycle.
type Guarded struct {
	next    Translator
	timeout time.Duration
	breaker *resilience.Breaker
}

// NewGuarded wraps next.
func NewGuarded(next Translator, timeout time.Duration, breaker *resilience.Breaker) *Guarded {
	if breaker == nil {
		breaker = resilience.New(resilience.TranslatorConfig())
	}
	return &Guarded{next: next, timeout: timeout, breaker: breaker}
}

// Breaker exposes the breaker for inspection.
func (g *Guarded) Breaker() *resilience.Breaker { return g.breaker }

// Translate implements Translator. All failures are TRANSLATION_FAILED, timeouts
// additionally carry TIMEOUT in the chain.
func (g *Guarded) Translate(ctx context.Context, text, source, target string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := resilience.Call(g.breaker, func() (string, error) {
		res, err := g.next.Translate(ctx, text, source, target)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		return res, err
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperrors.Wrap(err, apperrors.Timeout, "translation deadline exceeded")
		}
		return "", apperrors.Wrap(err, apperrors.TranslationFailed, "translate").
			WithMetadata("pair", source+"-"+target)
	}
	return out, nil
}

// Fallback decides what the worker shows when translation fails.
type Fallback int

const (
	ShowOriginal Fallback = iota // show the normalized source text
	Drop                         // show nothing and retry on the next changed frame
)

func (f Fallback) String() string {
	return [...]string{"original", "drop"}[f]
}

// ParseFallback parses a TRANSLATE_FALLBACK value.
func ParseFallback(s string) (Fallback, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "original", "":
		return ShowOriginal, nil
	case "drop":
		return Drop, nil
	}
	return ShowOriginal, fmt.Errorf("unknown translate fallback %q", s)
}
