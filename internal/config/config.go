// Package config loads settings from the environment and an optional YAML
// file. Environment variables override the file; the file overrides defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
	"github.com/GriffinCanCode/screenlingo/internal/display"
	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/fingerprint"
	"github.com/GriffinCanCode/screenlingo/internal/history"
	"github.com/GriffinCanCode/screenlingo/internal/hotkey"
	"github.com/GriffinCanCode/screenlingo/internal/translate"
)

// FileEnv names the variable holding the optional YAML file path.
const FileEnv = "SCREENLINGO_CONFIG"

const (
	TriggerInterval = "interval"
	TriggerPaced    = "paced"

	RecognizerTesseract = "tesseract"
	RecognizerGRPC      = "grpc"

	TranslatorGRPC  = "grpc"
	TranslatorLibre = "libre"
	TranslatorNone  = "none"

	RendererFyne = "fyne"
	RendererWeb  = "web"
)

type Config struct {
	Region        capture.Region
	Overlay       capture.Region
	DiffMethod    fingerprint.Method
	DiffThreshold float64

	TriggerMode     string
	RefreshInterval time.Duration
	PaceDelay       time.Duration
	FrameWait       time.Duration
	UITick          time.Duration
	CaptureSettle   time.Duration

	SourceLang string
	TargetLang string

	Recognizer    string
	TesseractLang string

	Translator        string
	InferenceAddr     string
	LibreTranslateURL string
	LibreTranslateKey string
	TranslateTimeout  time.Duration
	Fallback          translate.Fallback

	HotkeyMode     hotkey.Mode
	ToggleChord    hotkey.Chord
	ShutdownChord  hotkey.Chord
	DebounceWindow time.Duration

	Renderer     string
	WebAddr      string
	OverlayAlpha float64
	HistorySize  int

	LogLevel string
}

// Load reads the optional file named by SCREENLINGO_CONFIG, then the
// environment. Malformed values are reported together as CONFIG_INVALID.
func Load() (*Config, error) {
	l := &loader{}
	if path := os.Getenv(FileEnv); path != "" {
		if err := l.readFile(path); err != nil {
			return nil, err
		}
	}

	region := parse(l, "REGION", "865,535,840,130", capture.ParseRegion)
	overlay := region
	if _, ok := l.lookup("OVERLAY_RECT"); ok {
		overlay = parse(l, "OVERLAY_RECT", "", capture.ParseRegion)
	}

	cfg := &Config{
		Region:        region,
		Overlay:       overlay,
		DiffMethod:    parse(l, "DIFF_METHOD", "ssim", fingerprint.ParseMethod),
		DiffThreshold: l.float("DIFF_THRESHOLD", fingerprint.DefaultThreshold),

		TriggerMode:     strings.ToLower(l.str("TRIGGER_MODE", TriggerInterval)),
		RefreshInterval: l.duration("REFRESH_INTERVAL", time.Second),
		PaceDelay:       l.duration("PACE_DELAY", 500*time.Millisecond),
		FrameWait:       l.duration("FRAME_WAIT", 500*time.Millisecond),
		UITick:          l.duration("UI_TICK", 100*time.Millisecond),
		CaptureSettle:   l.duration("CAPTURE_SETTLE", 50*time.Millisecond),

		SourceLang: l.str("SOURCE_LANG", "en"),
		TargetLang: l.str("TARGET_LANG", "ru"),

		Recognizer:    strings.ToLower(l.str("RECOGNIZER", RecognizerTesseract)),
		TesseractLang: l.str("TESSERACT_LANG", "eng"),

		Translator:        strings.ToLower(l.str("TRANSLATOR", TranslatorGRPC)),
		InferenceAddr:     l.str("INFERENCE_ADDR", "localhost:50051"),
		LibreTranslateURL: l.str("LIBRETRANSLATE_URL", "http://localhost:5000"),
		LibreTranslateKey: l.str("LIBRETRANSLATE_API_KEY", ""),
		TranslateTimeout:  l.duration("TRANSLATE_TIMEOUT", 5*time.Second),
		Fallback:          parse(l, "TRANSLATE_FALLBACK", "original", translate.ParseFallback),

		HotkeyMode:     parse(l, "HOTKEY_MODE", "debounced", hotkey.ParseMode),
		ToggleChord:    parse(l, "HOTKEY_TOGGLE", "ctrl+shift+f9", hotkey.ParseChord),
		ShutdownChord:  parse(l, "HOTKEY_SHUTDOWN", "ctrl+shift+f10", hotkey.ParseChord),
		DebounceWindow: l.duration("DEBOUNCE_WINDOW", hotkey.DefaultDebounceWindow),

		Renderer:     strings.ToLower(l.str("RENDERER", RendererFyne)),
		WebAddr:      l.str("WEB_ADDR", ":8765"),
		OverlayAlpha: l.float("OVERLAY_ALPHA", 0.7),
		HistorySize:  l.integer("HISTORY_SIZE", history.DefaultSize),

		LogLevel: l.str("LOG_LEVEL", "info"),
	}

	if err := errors.Join(l.errs...); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ConfigInvalid, "parse configuration")
	}
	return cfg, nil
}

// Validate checks ranges and choices. It reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if err := c.Region.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Overlay.Validate(); err != nil {
		errs = append(errs, err)
	}
	check(c.DiffThreshold >= 0 && c.DiffThreshold <= fingerprint.MaxScore,
		"DIFF_THRESHOLD %v: must be within [0, %v]", c.DiffThreshold, fingerprint.MaxScore)

	check(oneOf(c.TriggerMode, TriggerInterval, TriggerPaced), "TRIGGER_MODE %q: want interval or paced", c.TriggerMode)
	check(c.RefreshInterval > 0, "REFRESH_INTERVAL %v: must be positive", c.RefreshInterval)
	check(c.PaceDelay >= 0, "PACE_DELAY %v: must not be negative", c.PaceDelay)
	check(c.FrameWait > 0, "FRAME_WAIT %v: must be positive", c.FrameWait)
	check(c.UITick > 0, "UI_TICK %v: must be positive", c.UITick)
	check(c.CaptureSettle > 0 && c.CaptureSettle <= display.MaxSettle,
		"CAPTURE_SETTLE %v: must be within (0, %v]", c.CaptureSettle, display.MaxSettle)

	check(c.SourceLang != "", "SOURCE_LANG: must not be empty")
	check(c.TargetLang != "", "TARGET_LANG: must not be empty")

	check(oneOf(c.Recognizer, RecognizerTesseract, RecognizerGRPC), "RECOGNIZER %q: want tesseract or grpc", c.Recognizer)
	check(c.Recognizer != RecognizerTesseract || c.TesseractLang != "", "TESSERACT_LANG: must not be empty")
	check(oneOf(c.Translator, TranslatorGRPC, TranslatorLibre, TranslatorNone), "TRANSLATOR %q: want grpc, libre or none", c.Translator)
	check(!c.UsesInference() || c.InferenceAddr != "", "INFERENCE_ADDR: must not be empty")
	check(c.Translator != TranslatorLibre || c.LibreTranslateURL != "", "LIBRETRANSLATE_URL: must not be empty")
	check(c.TranslateTimeout > 0, "TRANSLATE_TIMEOUT %v: must be positive", c.TranslateTimeout)

	check(c.ToggleChord != c.ShutdownChord, "HOTKEY_TOGGLE and HOTKEY_SHUTDOWN: must differ (both %s)", c.ToggleChord)
	check(c.DebounceWindow > 0, "DEBOUNCE_WINDOW %v: must be positive", c.DebounceWindow)

	check(oneOf(c.Renderer, RendererFyne, RendererWeb), "RENDERER %q: want fyne or web", c.Renderer)
	check(c.Renderer != RendererWeb || c.WebAddr != "", "WEB_ADDR: must not be empty")
	check(c.OverlayAlpha >= 0 && c.OverlayAlpha <= 1, "OVERLAY_ALPHA %v: must be within [0, 1]", c.OverlayAlpha)
	check(c.HistorySize > 0, "HISTORY_SIZE %d: must be positive", c.HistorySize)

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err))
	}

	if err := errors.Join(errs...); err != nil {
		return apperrors.Wrap(err, apperrors.ConfigInvalid, "invalid configuration")
	}
	return nil
}

// SlogLevel returns the parsed log level, info when unparsable.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// UsesInference reports whether any backend dials the inference service.
func (c *Config) UsesInference() bool {
	return c.Recognizer == RecognizerGRPC || c.Translator == TranslatorGRPC
}

func oneOf(v string, choices ...string) bool {
	for _, c := range choices {
		if v == c {
			return true
		}
	}
	return false
}

// loader resolves keys from the environment, then the file.
type loader struct {
	file map[string]string
	errs []error
}

// readFile loads a flat YAML mapping. Keys are matched case-insensitively
// against the environment names, so region: and REGION: are the same key.
func (l *loader) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ConfigInvalid, "read config file").WithMetadata("path", path)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return apperrors.Wrap(err, apperrors.ConfigInvalid, "parse config file").WithMetadata("path", path)
	}
	l.file = make(map[string]string, len(raw))
	for k, v := range raw {
		l.file[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return nil
}

func (l *loader) lookup(key string) (string, bool) {
	if v := os.Getenv(key); v != "" {
		return v, true
	}
	if v := l.file[key]; v != "" {
		return v, true
	}
	return "", false
}

func (l *loader) fail(key, value string, err error) {
	l.errs = append(l.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (l *loader) str(key, def string) string {
	if v, ok := l.lookup(key); ok {
		return v
	}
	return def
}

func (l *loader) integer(key string, def int) int {
	v, ok := l.lookup(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return i
}

func (l *loader) float(key string, def float64) float64 {
	v, ok := l.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return f
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v, ok := l.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, v, err)
		return def
	}
	return d
}

// parse resolves key and runs fn over it; def is parsed the same way.
func parse[T any](l *loader, key, def string, fn func(string) (T, error)) T {
	v := l.str(key, def)
	out, err := fn(v)
	if err != nil {
		l.fail(key, v, err)
	}
	return out
}
