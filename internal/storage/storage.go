package storage

import (
	"context"
	"io"
)

// Backend is write-once object storage addressed by key. Put reports the
// cumulative number of bytes written through onProgress and returns a
// durable, publicly retrievable URL.
type Backend interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64, onProgress func(written int64)) (string, error)
}

// Progress is one upload progress event.
type Progress struct {
	BytesTransferred int64 `json:"bytes_transferred"`
	TotalBytes       int64 `json:"total_bytes"`
}

// Percent is always within [0,100].
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	pct := float64(p.BytesTransferred) / float64(p.TotalBytes) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
