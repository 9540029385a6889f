package resilience

import "time"

const (
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// Translation is called at most once per changed frame, so a handful of
	// failures already means the backend is down.
	TranslatorThreshold         = 3
	TranslatorResetTimeout      = 10 * time.Second
	TranslatorHalfOpenSuccesses = 1

	RecognizerThreshold         = 5
	RecognizerResetTimeout      = 15 * time.Second
	RecognizerHalfOpenSuccesses = 2
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string
	Threshold         int           // failures before opening
	ResetTimeout      time.Duration // wait before half-open attempt
	HalfOpenSuccesses int           // successes needed to close
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// TranslatorConfig returns settings for the translation collaborator.
func TranslatorConfig() Config {
	return Config{
		Name:              "translator",
		Threshold:         TranslatorThreshold,
		ResetTimeout:      TranslatorResetTimeout,
		HalfOpenSuccesses: TranslatorHalfOpenSuccesses,
	}
}

// RecognizerConfig returns settings for the remote recognizer.
func RecognizerConfig() Config {
	return Config{
		Name:              "recognizer",
		Threshold:         RecognizerThreshold,
		ResetTimeout:      RecognizerResetTimeout,
		HalfOpenSuccesses: RecognizerHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
