package capture

import (
	"context"

	"github.com/kdimtricp/signlang/internal/models"
)

// Adapter records a finite clip from a live camera stream.
type Adapter interface {
	// Start blocks until the stream is acquired or fails with models.ErrCaptureUnavailable.
	Start(ctx context.Context) (*Handle, error)
	// Stop finalizes the recording and releases the device. Stopping a handle
	// that was never started, or twice, is a precondition violation.
	Stop(ctx context.Context, h *Handle) (*models.Clip, error)
}
