package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCaptureUnavailable = errors.New("capture unavailable")
	ErrUploadFailed       = errors.New("upload failed")
	ErrInferenceFailed    = errors.New("inference failed")
	ErrPrecondition       = errors.New("precondition violation")
	ErrInvalidClip        = errors.New("invalid clip")
	ErrStale              = errors.New("stale session")
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
)

// Wrap tags err with marker so errors.Is(result, marker) holds while the
// operation name stays in the message.
func Wrap(marker error, operation string, err error) error {
	operation = strings.TrimSpace(operation)
	switch {
	case err != nil && operation != "":
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	case err != nil:
		return fmt.Errorf("%w: %w", marker, err)
	case operation != "":
		return fmt.Errorf("%w: %s", marker, operation)
	default:
		return marker
	}
}
