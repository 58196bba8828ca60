package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/capture"
	"github.com/kdimtricp/signlang/internal/inference"
	"github.com/kdimtricp/signlang/internal/models"
	"github.com/kdimtricp/signlang/internal/storage"
	"github.com/kdimtricp/signlang/internal/vocabulary"
)

type Mode string

const (
	ModeText  Mode = "text"
	ModeVideo Mode = "video"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeText:
		return ModeText, nil
	case ModeVideo:
		return ModeVideo, nil
	default:
		return "", models.Wrap(models.ErrPrecondition, fmt.Sprintf("unknown mode %q", s), nil)
	}
}

type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateUploading State = "uploading"
	StateInferring State = "inferring"
)

const subscriberBuffer = 16

// Uploader starts a single-flight clip upload.
type Uploader interface {
	Upload(ctx context.Context, clip *models.Clip) (*storage.Upload, error)
}

// ResultRecorder keeps applied classifications.
type ResultRecorder interface {
	Insert(ctx context.Context, c *models.Classification) error
}

// Config carries a session's collaborators. Capture and Recorder may be nil.
type Config struct {
	Capture     capture.Adapter
	Uploader    Uploader
	Classifier  inference.Classifier
	Vocabulary  *vocabulary.Vocabulary
	Recorder    ResultRecorder
	Logger      *zap.Logger
	InitialMode Mode
	InitialWord string
}

// Session sequences capture or selection, upload, inference and display for
// one user. Completions carry the generation they were started under and are
// dropped once the session has been reset or switched mode.
type Session struct {
	id     string
	cfg    Config
	logger *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	generation uint64
	mode       Mode
	state      State
	word       vocabulary.Entry
	progress   float64
	result     *models.InferenceResult
	lastErr    error
	recording  *capture.Handle
	acquiring  bool
	inflight   bool
	lastActive time.Time
	closed     bool
	subs       map[int]chan View
	nextSub    int
}

func New(id string, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Vocabulary == nil {
		cfg.Vocabulary = vocabulary.New(nil, "", "")
	}
	if cfg.InitialMode == "" {
		cfg.InitialMode = ModeText
	}
	if cfg.InitialWord == "" {
		cfg.InitialWord = vocabulary.DefaultWord
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		cfg:        cfg,
		logger:     cfg.Logger.With(zap.String("session", id)),
		baseCtx:    ctx,
		cancel:     cancel,
		mode:       cfg.InitialMode,
		state:      StateIdle,
		lastActive: time.Now(),
		subs:       make(map[int]chan View),
	}
	if s.mode == ModeText {
		s.word = cfg.Vocabulary.Lookup(cfg.InitialWord)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Subscribe returns a channel that receives the current view followed by one
// view per state change. A slow subscriber loses its oldest pending view.
func (s *Session) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.viewLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// LastActive is the time of the last caller-initiated transition.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SetMode switches mode, discarding the other mode's transient state. Setting
// the current mode is a no-op.
func (s *Session) SetMode(ctx context.Context, mode Mode) error {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.mode == mode {
		s.mu.Unlock()
		return nil
	}
	h := s.resetLocked()
	s.mode = mode
	if mode == ModeText {
		s.word = s.cfg.Vocabulary.Lookup(s.cfg.InitialWord)
	} else {
		s.word = vocabulary.Entry{}
	}
	s.logger.Debug("mode switched", zap.String("mode", string(mode)), zap.Uint64("generation", s.generation))
	s.publishLocked()
	s.mu.Unlock()

	s.releaseRecording(ctx, h)
	return nil
}

// Reset returns to Idle from any state. A recording in progress is stopped;
// network calls are left to finish and their results are discarded.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	h := s.resetLocked()
	s.logger.Debug("session reset", zap.Uint64("generation", s.generation))
	s.publishLocked()
	s.mu.Unlock()

	s.releaseRecording(ctx, h)
}

// ChooseWord resolves input against the vocabulary. Only valid in text mode.
func (s *Session) ChooseWord(input string) (vocabulary.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeText {
		return vocabulary.Entry{}, models.Wrap(models.ErrPrecondition, "choose word outside text mode", nil)
	}
	s.touchLocked()
	s.word = s.cfg.Vocabulary.Lookup(input)
	s.publishLocked()
	return s.word, nil
}

// BeginCapture acquires the camera and starts recording. Valid only from Idle
// in video mode.
func (s *Session) BeginCapture(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requireIdleVideoLocked("begin capture"); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cfg.Capture == nil {
		err := models.Wrap(models.ErrCaptureUnavailable, "no capture device configured", nil)
		s.lastErr = err
		s.publishLocked()
		s.mu.Unlock()
		return err
	}
	s.touchLocked()
	s.acquiring = true
	gen := s.generation
	s.mu.Unlock()

	h, err := s.cfg.Capture.Start(ctx)

	s.mu.Lock()
	stale := gen != s.generation
	if !stale {
		s.acquiring = false
	}
	if err != nil {
		if !stale {
			s.lastErr = err
			s.publishLocked()
		}
		s.mu.Unlock()
		s.logger.Warn("capture unavailable", zap.Error(err))
		return err
	}
	if stale {
		s.mu.Unlock()
		s.releaseRecording(ctx, h)
		return models.Wrap(models.ErrStale, "session reset while acquiring camera", nil)
	}

	s.recording = h
	s.state = StateCapturing
	s.result = nil
	s.lastErr = nil
	s.logger.Debug("capturing", zap.String("recording", h.ID))
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

// EndCapture finalizes the recording and uploads it. Valid only from Capturing.
func (s *Session) EndCapture(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateCapturing || s.recording == nil {
		s.mu.Unlock()
		return models.Wrap(models.ErrPrecondition, fmt.Sprintf("end capture in state %s", s.state), nil)
	}
	s.touchLocked()
	h := s.recording
	s.recording = nil
	gen := s.generation
	s.mu.Unlock()

	clip, err := s.cfg.Capture.Stop(ctx, h)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return models.Wrap(models.ErrStale, "session reset while finalizing recording", nil)
	}
	if err != nil {
		s.state = StateIdle
		s.lastErr = err
		s.publishLocked()
		return err
	}
	return s.startPipelineLocked(clip)
}

// SelectClip uploads a supplied clip, bypassing capture. Valid only from Idle
// in video mode.
func (s *Session) SelectClip(clip *models.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clip == nil {
		return models.Wrap(models.ErrPrecondition, "select without clip", nil)
	}
	if err := s.requireIdleVideoLocked("select clip"); err != nil {
		return err
	}
	s.touchLocked()
	return s.startPipelineLocked(clip)
}

// Close stops any recording, cancels outstanding network calls, waits for
// them to return and closes every subscription.
func (s *Session) Close(ctx context.Context) {
	s.Reset(ctx)
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) requireIdleVideoLocked(op string) error {
	switch {
	case s.mode != ModeVideo:
		return models.Wrap(models.ErrPrecondition, op+" outside video mode", nil)
	case s.state != StateIdle:
		return models.Wrap(models.ErrPrecondition, fmt.Sprintf("%s in state %s", op, s.state), nil)
	case s.acquiring:
		return models.Wrap(models.ErrPrecondition, op+" while acquiring camera", nil)
	case s.inflight:
		return models.Wrap(models.ErrPrecondition, op+" while a previous clip is still being processed", nil)
	}
	return nil
}

func (s *Session) startPipelineLocked(clip *models.Clip) error {
	if s.inflight {
		s.state = StateIdle
		s.publishLocked()
		return models.Wrap(models.ErrPrecondition, "pipeline already in flight", nil)
	}

	upload, err := s.cfg.Uploader.Upload(s.baseCtx, clip)
	if err != nil {
		s.state = StateIdle
		s.lastErr = err
		s.publishLocked()
		return err
	}

	s.inflight = true
	s.state = StateUploading
	s.progress = 0
	s.result = nil
	s.lastErr = nil
	s.logger.Debug("uploading",
		zap.String("key", upload.Key),
		zap.Int64("bytes", upload.Total),
		zap.Uint64("generation", s.generation))
	s.publishLocked()

	s.wg.Add(1)
	go s.runPipeline(s.generation, clip, upload)
	return nil
}

func (s *Session) runPipeline(gen uint64, clip *models.Clip, upload *storage.Upload) {
	defer s.wg.Done()

	for p := range upload.Progress() {
		s.applyProgress(gen, p.Percent())
	}

	url, err := upload.Wait()
	if err != nil {
		s.finish(gen, clip, upload.Key, url, nil, err)
		return
	}

	if !s.enterInferring(gen) {
		return
	}

	result, err := s.cfg.Classifier.Classify(s.baseCtx, url)
	s.finish(gen, clip, upload.Key, url, result, err)
}

func (s *Session) applyProgress(gen uint64, pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.state != StateUploading || pct <= s.progress {
		return
	}
	s.progress = pct
	s.publishLocked()
}

func (s *Session) enterInferring(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.inflight = false
		s.logger.Debug("discarding stale upload", zap.Uint64("generation", gen))
		s.publishLocked()
		return false
	}
	s.state = StateInferring
	s.progress = 0
	s.publishLocked()
	return true
}

func (s *Session) finish(gen uint64, clip *models.Clip, key, url string, result *models.InferenceResult, err error) {
	s.mu.Lock()
	s.inflight = false
	if gen != s.generation {
		s.logger.Debug("discarding stale completion", zap.Uint64("generation", gen), zap.Error(err))
		s.publishLocked()
		s.mu.Unlock()
		return
	}

	s.state = StateIdle
	s.progress = 0
	if err != nil {
		s.result = nil
		s.lastErr = err
		s.logger.Warn("clip processing failed", zap.String("key", key), zap.Error(err))
		s.publishLocked()
		s.mu.Unlock()
		return
	}

	applied := *result
	s.result = &applied
	s.lastErr = nil
	s.logger.Info("clip classified",
		zap.String("key", key),
		zap.String("label", applied.Label),
		zap.Float64("confidence", applied.Confidence))
	s.publishLocked()
	s.mu.Unlock()

	if s.cfg.Recorder != nil {
		record := models.NewClassification(s.id, clip, key, url, applied)
		if err := s.cfg.Recorder.Insert(s.baseCtx, record); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("recording classification", zap.Error(err))
		}
	}
}

func (s *Session) resetLocked() *capture.Handle {
	s.generation++
	s.state = StateIdle
	s.progress = 0
	s.result = nil
	s.lastErr = nil
	s.acquiring = false
	s.touchLocked()

	h := s.recording
	s.recording = nil
	return h
}

func (s *Session) releaseRecording(ctx context.Context, h *capture.Handle) {
	if h == nil || s.cfg.Capture == nil {
		return
	}
	if _, err := s.cfg.Capture.Stop(ctx, h); err != nil {
		s.logger.Warn("stopping abandoned recording", zap.Error(err))
	}
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

func (s *Session) publishLocked() {
	v := s.viewLocked()
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
