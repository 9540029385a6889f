package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/trace"
)

const maxLibreResponse = 1 << 20

// Libre translates through a LibreTranslate HTTP server.
type Libre struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewLibre creates a client for the server at baseURL.
func NewLibre(baseURL, apiKey string) *Libre {
	return &Libre{
		endpoint: strings.TrimRight(baseURL, "/") + "/translate",
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate implements Translator.
func (l *Libre) Translate(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(libreRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: l.apiKey})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Internal, "encode translate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Internal, "build translate request")
	}
	req.Header.Set("Content-Type", "application/json")
	if tc, ok := trace.FromContext(ctx); ok {
		req.Header.Set(trace.TraceIDKey, tc.TraceID)
		req.Header.Set(trace.SpanIDKey, tc.SpanID)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Unavailable, "libretranslate request")
	}
	defer resp.Body.Close()

	var out libreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxLibreResponse)).Decode(&out); err != nil {
		return "", apperrors.Wrapf(err, apperrors.TranslationFailed, "decode libretranslate response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		code := apperrors.TranslationFailed
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			code = apperrors.Unavailable
		}
		return "", apperrors.New(code, fmt.Sprintf("libretranslate: %s", out.Error)).
			WithMetadata("status", fmt.Sprint(resp.StatusCode))
	}
	return out.TranslatedText, nil
}
