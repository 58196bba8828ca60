package session

import (
	"time"

	"github.com/kdimtricp/signlang/internal/models"
	"github.com/kdimtricp/signlang/internal/vocabulary"
)

const (
	StageUploading = "Uploading"
	StageInferring = "Inferring..."
	WaitingDisplay = "Waiting..."
)

// View is everything a presentation layer needs to draw a session.
type View struct {
	SessionID  string            `json:"session_id"`
	Generation uint64            `json:"generation"`
	Mode       Mode              `json:"mode"`
	State      State             `json:"state"`
	Word       *vocabulary.Entry `json:"word,omitempty"`
	Progress   *float64          `json:"progress,omitempty"`
	Stage      string            `json:"stage,omitempty"`
	Result     *ResultView       `json:"result,omitempty"`
	Display    string            `json:"display,omitempty"`
	LastError  string            `json:"last_error,omitempty"`
	Busy       bool              `json:"busy"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type ResultView struct {
	Label      string  `json:"label"`
	RawLabel   string  `json:"raw_label"`
	Confidence float64 `json:"confidence"`
	Percent    int64   `json:"percent"`
	Display    string  `json:"display"`
}

func newResultView(r models.InferenceResult) *ResultView {
	return &ResultView{
		Label:      r.DisplayLabel(),
		RawLabel:   r.Label,
		Confidence: r.Confidence,
		Percent:    r.Percent(),
		Display:    r.Display(),
	}
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:  s.id,
		Generation: s.generation,
		Mode:       s.mode,
		State:      s.state,
		Busy:       s.inflight || s.acquiring,
		UpdatedAt:  time.Now(),
	}

	if s.lastErr != nil {
		v.LastError = s.lastErr.Error()
	}

	switch s.mode {
	case ModeText:
		word := s.word
		v.Word = &word
	case ModeVideo:
		v.Display = WaitingDisplay
		if s.result != nil {
			v.Result = newResultView(*s.result)
			v.Display = v.Result.Display
		}
	}

	switch s.state {
	case StateUploading:
		progress := s.progress
		v.Progress = &progress
		v.Stage = StageUploading
	case StateInferring:
		v.Stage = StageInferring
	}

	return v
}
