package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const localChunkSize = 256 * 1024

// LocalStorage keeps objects under a directory that the API serves at
// publicBaseURL.
type LocalStorage struct {
	basePath      string
	publicBaseURL string
}

func NewLocalStorage(basePath, publicBaseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (ls *LocalStorage) Put(ctx context.Context, key, contentType string, r io.Reader, size int64, onProgress func(int64)) (string, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	dst, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := copyWithProgress(ctx, dst, r, onProgress); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return ls.publicBaseURL + "/" + filepath.ToSlash(key), nil
}

func (ls *LocalStorage) Open(path string) (*os.File, error) {
	fullPath, err := ls.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (ls *LocalStorage) resolve(path string) (string, error) {
	cleanPath := filepath.Clean(strings.TrimPrefix(path, "/"))
	if cleanPath == "." || strings.Contains(cleanPath, "..") || filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("invalid path")
	}
	return filepath.Join(ls.basePath, cleanPath), nil
}

func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, onProgress func(int64)) error {
	buf := make([]byte, localChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return err
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
