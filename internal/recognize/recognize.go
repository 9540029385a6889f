// Package recognize defines the text-recognition collaborator and its remote
// adapter. The Tesseract adapter lives in the tesseract subpackage so that
// only binaries that use it link against libtesseract.
package recognize

import (
	"bytes"
	"context"
	"image"
	"image/png"

	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/resilience"
)

// Recognizer extracts text from an image. Implementations are owned by a
// single worker and need not be safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// TextExtractor is the remote OCR call, satisfied by grpcclient.Client.
type TextExtractor interface {
	ExtractText(ctx context.Context, png []byte) (string, error)
}

// Remote recognizes through the inference server.
type Remote struct {
	client  TextExtractor
	breaker *resilience.Breaker
}

// NewRemote wraps client with a circuit breaker.
func NewRemote(client TextExtractor) *Remote {
	return &Remote{client: client, breaker: resilience.New(resilience.RecognizerConfig())}
}

// Recognize implements Recognizer.
func (r *Remote) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	text, err := resilience.Call(r.breaker, func() (string, error) {
		return r.client.ExtractText(ctx, data)
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.RecognitionFailed, "remote recognition")
	}
	return text, nil
}

// Close is a no-op; the connection belongs to the caller.
func (r *Remote) Close() error { return nil }

// EncodePNG encodes img favouring speed over size.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, apperrors.Wrap(err, apperrors.RecognitionFailed, "encode png")
	}
	return buf.Bytes(), nil
}

// Func adapts a function to Recognizer.
type Func func(ctx context.Context, img image.Image) (string, error)

// Recognize implements Recognizer.
func (f Func) Recognize(ctx context.Context, img image.Image) (string, error) { return f(ctx, img) }

// Close implements Recognizer.
func (Func) Close() error { return nil }
