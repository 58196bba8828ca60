package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/models"
)

const DefaultKeyPrefix = "videos"

// Uploader streams clips to a Backend, one at a time.
type Uploader struct {
	backend Backend
	prefix  string
	logger  *zap.Logger
	now     func() time.Time
	active  atomic.Bool
}

func NewUploader(backend Backend, prefix string, logger *zap.Logger) *Uploader {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		backend: backend,
		prefix:  prefix,
		logger:  logger,
		now:     time.Now,
	}
}

// Upload is one in-flight upload. Callers must drain Progress until it is
// closed (or cancel ctx) before Wait returns.
type Upload struct {
	Key   string
	Total int64

	progress chan Progress
	done     chan struct{}
	url      string
	err      error
}

func (u *Upload) Progress() <-chan Progress {
	return u.progress
}

// Wait blocks until the terminal event and returns the object URL or the failure.
func (u *Upload) Wait() (string, error) {
	<-u.done
	return u.url, u.err
}

// Active reports whether an upload is outstanding.
func (up *Uploader) Active() bool {
	return up.active.Load()
}

// Upload starts streaming clip. Starting a second upload while one is active
// is a caller error.
func (up *Uploader) Upload(ctx context.Context, clip *models.Clip) (*Upload, error) {
	if clip == nil {
		return nil, models.Wrap(models.ErrPrecondition, "upload without clip", nil)
	}
	if !up.active.CompareAndSwap(false, true) {
		return nil, models.Wrap(models.ErrPrecondition, "upload already in progress", nil)
	}

	u := &Upload{
		Key:      up.objectKey(clip),
		Total:    clip.Size(),
		progress: make(chan Progress, 8),
		done:     make(chan struct{}),
	}

	go up.run(ctx, clip, u)

	return u, nil
}

func (up *Uploader) run(ctx context.Context, clip *models.Clip, u *Upload) {
	var (
		mu   sync.Mutex
		last int64 = -1
	)

	emit := func(written int64) {
		if written > u.Total {
			written = u.Total
		}
		mu.Lock()
		defer mu.Unlock()
		if written <= last {
			return
		}
		last = written
		select {
		case u.progress <- Progress{BytesTransferred: written, TotalBytes: u.Total}:
		case <-ctx.Done():
		}
	}

	started := up.now()
	url, err := up.backend.Put(ctx, u.Key, clip.ContentType, clip.Reader(), u.Total, emit)
	if err == nil {
		emit(u.Total)
		u.url = url
		up.logger.Info("upload complete",
			zap.String("key", u.Key),
			zap.Int64("bytes", u.Total),
			zap.Duration("elapsed", up.now().Sub(started)))
	} else {
		u.err = models.Wrap(models.ErrUploadFailed, u.Key, err)
		up.logger.Warn("upload failed", zap.String("key", u.Key), zap.Error(err))
	}

	close(u.progress)
	up.active.Store(false)
	close(u.done)
}

func (up *Uploader) objectKey(clip *models.Clip) string {
	return fmt.Sprintf("%s/%d-%s.%s", up.prefix, up.now().UnixMilli(), uuid.New().String(), extensionFor(clip))
}

func extensionFor(clip *models.Clip) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(clip.ContentType, ";")[0])) {
	case "video/webm":
		return "webm"
	case "video/mp4":
		return "mp4"
	case "video/quicktime":
		return "mov"
	case "video/x-matroska":
		return "mkv"
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(clip.Filename)), "."); isPlainExt(ext) {
		return ext
	}
	return "webm"
}

func isPlainExt(ext string) bool {
	if ext == "" || len(ext) > 5 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
