package models

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"lukechampine.com/blake3"
)

const DefaultContentType = "video/webm"

// Clip is an immutable recorded or uploaded video payload.
type Clip struct {
	data        []byte
	ContentType string
	Filename    string
	Digest      string
	CreatedAt   time.Time
}

func NewClip(data []byte, contentType, filename string) (*Clip, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: clip is empty", ErrInvalidClip)
	}

	contentType = strings.TrimSpace(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeForFilename(filename)
	}

	payload := make([]byte, len(data))
	copy(payload, data)

	digest, err := digestOf(payload)
	if err != nil {
		return nil, err
	}

	return &Clip{
		data:        payload,
		ContentType: contentType,
		Filename:    filename,
		Digest:      digest,
		CreatedAt:   time.Now(),
	}, nil
}

// ReadClip drains r into a new Clip.
func ReadClip(r io.Reader, contentType, filename string) (*Clip, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading clip: %w", err)
	}
	return NewClip(data, contentType, filename)
}

func (c *Clip) Size() int64 {
	return int64(len(c.data))
}

// Reader returns a fresh reader over the payload; the payload itself is never exposed.
func (c *Clip) Reader() *bytes.Reader {
	return bytes.NewReader(c.data)
}

// ContentTypeForFilename maps a clip file extension to its content type,
// defaulting to WebM.
func ContentTypeForFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	default:
		return DefaultContentType
	}
}

func digestOf(data []byte) (string, error) {
	h := blake3.New(32, nil)
	if _, err := h.Write(data); err != nil {
		return "", fmt.Errorf("calculating blake3 digest: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
