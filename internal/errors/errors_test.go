package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CaptureFailed, "CAPTURE_FAILED"},
		{TranslationFailed, "TRANSLATION_FAILED"},
		{ConfigInvalid, "CONFIG_INVALID"},
		{Code(999), "UNKNOWN"},
		{Code(-1), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("Code(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestAppErrorMessage(t *testing.T) {
	cause := stderrors.New("display busy")
	err := Wrap(cause, CaptureFailed, "grab region").WithMetadata("region", "0,0,10,10")

	msg := err.Error()
	for _, part := range []string{"[CAPTURE_FAILED]", "grab region", "region:0,0,10,10", "caused by: display busy"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find wrapped cause")
	}
}

func TestIsCodeWalksChain(t *testing.T) {
	inner := New(TranslationFailed, "engine down")
	outer := fmt.Errorf("cycle 3: %w", inner)

	if !IsCode(outer, TranslationFailed) {
		t.Error("IsCode should find code through fmt wrapping")
	}
	if IsCode(outer, CaptureFailed) {
		t.Error("IsCode matched wrong code")
	}
	if IsCode(nil, Unknown) {
		t.Error("IsCode(nil) should be false")
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	orig := New(RecognizerInitFailed, "no traineddata").WithMetadata("lang", "eng")
	wire := orig.GRPCStatus().Err()

	if got := status.Code(wire); got != codes.Unavailable {
		t.Errorf("status code = %v, want Unavailable", got)
	}

	back := FromGRPCError(wire)
	if back.Code != RecognizerInitFailed {
		t.Errorf("Code = %v, want RecognizerInitFailed", back.Code)
	}
	if back.Metadata["lang"] != "eng" {
		t.Errorf("Metadata = %v, want lang=eng", back.Metadata)
	}
}

func TestFromGRPCErrorFallback(t *testing.T) {
	tests := []struct {
		code codes.Code
		want Code
	}{
		{codes.Unavailable, Unavailable},
		{codes.DeadlineExceeded, Timeout},
		{codes.Canceled, Cancelled},
		{codes.Internal, Internal},
		{codes.InvalidArgument, ConfigInvalid},
		{codes.NotFound, Unknown},
	}
	for _, tt := range tests {
		got := FromGRPCError(status.Error(tt.code, "x"))
		if got.Code != tt.want {
			t.Errorf("FromGRPCError(%v).Code = %v, want %v", tt.code, got.Code, tt.want)
		}
	}

	plain := FromGRPCError(stderrors.New("plain"))
	if plain.Code != Unknown {
		t.Errorf("plain error code = %v, want Unknown", plain.Code)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(Unavailable, "x")) {
		t.Error("Unavailable should be retryable")
	}
	if !IsRetryable(New(Timeout, "x")) {
		t.Error("Timeout should be retryable")
	}
	if IsRetryable(New(ConfigInvalid, "x")) {
		t.Error("ConfigInvalid should not be retryable")
	}
	if IsRetryable(stderrors.New("x")) {
		t.Error("plain errors should not be retryable")
	}
}
