// Package tesseract recognizes text with a local Tesseract engine.
package tesseract

import (
	"context"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/recognize"
)

// Recognizer wraps one gosseract client. It is not safe for concurrent use;
// the worker owns it for its whole lifetime.
type Recognizer struct {
	client *gosseract.Client
}

// New creates a recognizer for lang ("eng", "eng+deu") and runs one blank
// recognition so a missing language pack fails here instead of on the first
// frame.
func New(lang string) (*Recognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, apperrors.RecognizerInitFailed, "set tesseract language").
			WithMetadata("lang", lang)
	}

	blank, err := recognize.EncodePNG(image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, apperrors.RecognizerInitFailed, "prepare warmup image")
	}
	if err := client.SetImageFromBytes(blank); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, apperrors.RecognizerInitFailed, "load warmup image")
	}
	if _, err := client.Text(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, apperrors.RecognizerInitFailed, "initialize tesseract").
			WithMetadata("lang", lang)
	}
	return &Recognizer{client: client}, nil
}

// Recognize implements recognize.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.Wrap(err, apperrors.Cancelled, "recognition cancelled")
	}
	data, err := recognize.EncodePNG(img)
	if err != nil {
		return "", err
	}
	if err := r.client.SetImageFromBytes(data); err != nil {
		return "", apperrors.Wrap(err, apperrors.RecognitionFailed, "load image")
	}
	text, err := r.client.Text()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.RecognitionFailed, "tesseract")
	}
	return text, nil
}

// Close releases the engine.
func (r *Recognizer) Close() error {
	return r.client.Close()
}
