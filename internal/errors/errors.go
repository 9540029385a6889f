// Package errors provides unified error handling with structured error codes.
// Codes travel over gRPC as errdetails.ErrorInfo so the inference server and
// this process agree on failure kinds.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain identifies errors raised by this process in ErrorInfo details.
const Domain = "screenlingo"

// Code classifies an AppError.
type Code int

const (
	Unknown Code = iota
	Internal
	Unavailable
	Timeout
	Cancelled
	CaptureFailed
	RecognitionFailed
	RecognizerInitFailed
	TranslationFailed
	ConfigInvalid
	HotkeyFailed
	RendererFailed
)

var codeNames = [...]string{
	Unknown:              "UNKNOWN",
	Internal:             "INTERNAL",
	Unavailable:          "UNAVAILABLE",
	Timeout:              "TIMEOUT",
	Cancelled:            "CANCELLED",
	CaptureFailed:        "CAPTURE_FAILED",
	RecognitionFailed:    "RECOGNITION_FAILED",
	RecognizerInitFailed: "RECOGNIZER_INIT_FAILED",
	TranslationFailed:    "TRANSLATION_FAILED",
	ConfigInvalid:        "CONFIG_INVALID",
	HotkeyFailed:         "HOTKEY_FAILED",
	RendererFailed:       "RENDERER_FAILED",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return codeNames[Unknown]
	}
	return codeNames[c]
}

// codeFromName reverses String for codes received over the wire.
func codeFromName(name string) (Code, bool) {
	for i, n := range codeNames {
		if n == name {
			return Code(i), true
		}
	}
	return Unknown, false
}

// grpcCodeMap maps error codes to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	Unknown:              codes.Unknown,
	Internal:             codes.Internal,
	Unavailable:          codes.Unavailable,
	Timeout:              codes.DeadlineExceeded,
	Cancelled:            codes.Canceled,
	CaptureFailed:        codes.Internal,
	RecognitionFailed:    codes.Internal,
	RecognizerInitFailed: codes.Unavailable,
	TranslationFailed:    codes.Internal,
	ConfigInvalid:        codes.InvalidArgument,
	HotkeyFailed:         codes.FailedPrecondition,
	RendererFailed:       codes.FailedPrecondition,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus returns a gRPC status with an ErrorInfo detail attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	info := &errdetails.ErrorInfo{Reason: e.Code.String(), Domain: Domain, Metadata: e.Metadata}
	if withDetail, err := st.WithDetails(info); err == nil {
		return withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts an AppError from a gRPC error. The gRPC error is
// kept as the cause so retry classification still sees the status code.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: Unknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != Domain {
			continue
		}
		if code, ok := codeFromName(info.GetReason()); ok {
			return &AppError{Code: code, Message: st.Message(), Metadata: info.GetMetadata(), Cause: err}
		}
	}

	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message(), Cause: err}
}

// grpcToCode maps gRPC codes back to our error codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return ConfigInvalid
	case codes.Unavailable:
		return Unavailable
	case codes.DeadlineExceeded:
		return Timeout
	case codes.Canceled:
		return Cancelled
	case codes.Internal:
		return Internal
	default:
		return Unknown
	}
}

// IsCode checks if an error chain carries a specific error code. Every
// AppError in the chain is considered, not only the outermost.
func IsCode(err error, code Code) bool {
	for {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
}

// IsRetryable reports whether the outermost AppError in the chain is a
// transient failure.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case Unavailable, Timeout:
		return true
	default:
		return false
	}
}
