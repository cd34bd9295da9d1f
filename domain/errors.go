package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyInput    = errors.New("empty input")
	ErrBusy          = errors.New("a request of this kind is already in flight")
	ErrListenTimeout = errors.New("listening timed out while waiting for phrase to start")
	ErrNotUnderstood = errors.New("speech was not understood")
	ErrNoVoice       = errors.New("voice capture is not configured")
	ErrNoHistory     = errors.New("no saved transcript")
)

// ConfigurationError lists every required setting that is missing or unusable.
type ConfigurationError struct {
	Missing []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ServiceError is returned when a remote backend is unreachable, rejects credentials or rejects the request.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *ServiceError) Unwrap() error { return e.Err }

// RecognitionError wraps a failed speech recognition call.
type RecognitionError struct {
	Err error
}

func (e *RecognitionError) Error() string { return "speech recognition: " + e.Err.Error() }

func (e *RecognitionError) Unwrap() error { return e.Err }
