package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/models"
)

const (
	DefaultDevice      = "/dev/video0"
	DefaultInputFormat = "v4l2"

	// WebM/VP8 plays back in every browser preview.
	recordingContentType = "video/webm"
)

type Options struct {
	FFmpegPath  string
	Device      string
	InputFormat string
	TempDir     string
	// SettleTime is how long ffmpeg must stay alive before the device counts as acquired.
	SettleTime  time.Duration
	StopTimeout time.Duration
}

// Handle identifies one recording.
type Handle struct {
	ID        string
	StartedAt time.Time

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	path    string
	stderr  *bytes.Buffer
	exited  chan struct{}
	waitErr error
	stopped bool
}

// FFmpegRecorder captures from a local video device with ffmpeg. The device
// is owned by at most one recording at a time.
type FFmpegRecorder struct {
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	active *Handle
}

var _ Adapter = (*FFmpegRecorder)(nil)

func NewFFmpegRecorder(opts Options, logger *zap.Logger) *FFmpegRecorder {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.Device == "" {
		opts.Device = DefaultDevice
	}
	if opts.InputFormat == "" {
		opts.InputFormat = DefaultInputFormat
	}
	if opts.TempDir == "" {
		opts.TempDir = filepath.Join(os.TempDir(), "signlang-capture")
	}
	if opts.SettleTime <= 0 {
		opts.SettleTime = 500 * time.Millisecond
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegRecorder{opts: opts, logger: logger}
}

func (r *FFmpegRecorder) Start(ctx context.Context) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, models.Wrap(models.ErrCaptureUnavailable, "device busy: "+r.opts.Device, nil)
	}

	ffmpegPath, err := exec.LookPath(r.opts.FFmpegPath)
	if err != nil {
		return nil, models.Wrap(models.ErrCaptureUnavailable, "ffmpeg not found", err)
	}

	if _, err := os.Stat(r.opts.Device); err != nil {
		return nil, models.Wrap(models.ErrCaptureUnavailable, "no camera stream at "+r.opts.Device, err)
	}

	if err := os.MkdirAll(r.opts.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	h := &Handle{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		stderr:    &bytes.Buffer{},
		exited:    make(chan struct{}),
	}
	h.path = filepath.Join(r.opts.TempDir, h.ID+".webm")

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", r.opts.InputFormat,
		"-i", r.opts.Device,
		"-an",
		"-c:v", "libvpx",
		"-deadline", "realtime",
		"-b:v", "1M",
		"-f", "webm",
		"-y", h.path,
	}

	// The recording outlives the request that started it, so it is not bound to ctx.
	h.cmd = exec.Command(ffmpegPath, args...)
	h.cmd.Stderr = h.stderr
	h.stdin, err = h.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening ffmpeg stdin: %w", err)
	}

	if err := h.cmd.Start(); err != nil {
		return nil, models.Wrap(models.ErrCaptureUnavailable, "starting ffmpeg", err)
	}

	go func() {
		h.waitErr = h.cmd.Wait()
		close(h.exited)
	}()

	select {
	case <-h.exited:
		os.Remove(h.path)
		return nil, models.Wrap(models.ErrCaptureUnavailable,
			"ffmpeg exited: "+strings.TrimSpace(h.stderr.String()), h.waitErr)
	case <-ctx.Done():
		h.cmd.Process.Kill()
		<-h.exited
		os.Remove(h.path)
		return nil, models.Wrap(models.ErrCaptureUnavailable, "acquiring camera", ctx.Err())
	case <-time.After(r.opts.SettleTime):
	}

	r.active = h
	r.logger.Info("recording started", zap.String("recording", h.ID), zap.String("device", r.opts.Device))

	return h, nil
}

func (r *FFmpegRecorder) Stop(ctx context.Context, h *Handle) (*models.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h == nil || h.stopped || r.active != h {
		return nil, models.Wrap(models.ErrPrecondition, "stop without active recording", nil)
	}
	h.stopped = true
	r.active = nil
	defer os.Remove(h.path)

	// ffmpeg finalizes the container when it reads q on stdin.
	if _, err := io.WriteString(h.stdin, "q\n"); err != nil {
		r.logger.Debug("writing quit to ffmpeg", zap.Error(err))
	}
	h.stdin.Close()

	select {
	case <-h.exited:
	case <-time.After(r.opts.StopTimeout):
		r.logger.Warn("ffmpeg did not stop in time, killing", zap.String("recording", h.ID))
		h.cmd.Process.Kill()
		<-h.exited
	case <-ctx.Done():
		h.cmd.Process.Kill()
		<-h.exited
		return nil, fmt.Errorf("stopping recording: %w", ctx.Err())
	}

	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil, models.Wrap(models.ErrCaptureUnavailable, "reading recording", err)
	}
	if len(data) == 0 {
		return nil, models.Wrap(models.ErrCaptureUnavailable, "recording is empty", nil)
	}

	r.logger.Info("recording stopped",
		zap.String("recording", h.ID),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(h.StartedAt)))

	return models.NewClip(data, recordingContentType, "capture.webm")
}
