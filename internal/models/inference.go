package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// ConfidenceThreshold is the highest confidence still displayed as UnknownLabel.
	ConfidenceThreshold = 0.4
	UnknownLabel        = "Unknown"
)

type InferenceResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DisplayLabel applies the confidence threshold; the raw label is kept on the result.
func (r InferenceResult) DisplayLabel() string {
	if r.Confidence > ConfidenceThreshold {
		return r.Label
	}
	return UnknownLabel
}

// Percent rounds the float product confidence*100 to a whole percentage, so
// 0.285 shows as 28 because 0.285*100 is 28.499999999999996.
func (r InferenceResult) Percent() int64 {
	return decimal.NewFromFloat(r.Confidence * 100).
		Round(0).
		IntPart()
}

// Display renders e.g. "Makan (82%)". A zero confidence omits the percentage.
func (r InferenceResult) Display() string {
	label := capitalize(r.DisplayLabel())
	if r.Confidence == 0 {
		return label
	}
	return fmt.Sprintf("%s (%d%%)", label, r.Percent())
}

func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}

// Classification is one applied inference result as kept in history.
type Classification struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	ObjectKey    string    `json:"object_key"`
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Digest       string    `json:"digest"`
	Label        string    `json:"label"`
	DisplayLabel string    `json:"display_label"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewClassification(sessionID string, clip *Clip, key, url string, result InferenceResult) *Classification {
	c := &Classification{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		ObjectKey:    key,
		URL:          url,
		Label:        strings.TrimSpace(result.Label),
		DisplayLabel: result.DisplayLabel(),
		Confidence:   result.Confidence,
		CreatedAt:    time.Now().UTC(),
	}
	if clip != nil {
		c.ContentType = clip.ContentType
		c.Size = clip.Size()
		c.Digest = clip.Digest
	}
	return c
}
