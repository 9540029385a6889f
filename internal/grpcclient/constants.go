package grpcclient

import "time"

// Client configuration defaults
const (
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	HealthCheckTimeout = 2 * time.Second
	DefaultCallTimeout = 5 * time.Second
)

// Full method names served by the inference process.
const (
	RecognizeMethod = "/screenlingo.v1.Recognizer/Recognize"
	TranslateMethod = "/screenlingo.v1.Translator/Translate"
)

// Field names of the Translate request struct.
const (
	FieldText   = "text"
	FieldSource = "source"
	FieldTarget = "target"
)
