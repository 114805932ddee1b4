// Package blobstore implements the Blob Store: persistence of raw OCR
// provider responses outside the metadata store, at
// {basePath}/{engine}/{runId}/raw_response.json.
package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/rs/zerolog/log"
)

// LocalFileStore writes raw responses as files to a local directory. This is
// the default blob backend; a cloud object-storage backend can implement
// the same contracts.BlobStore interface without changing any caller.
type LocalFileStore struct {
	basePath string
}

// NewLocalFileStore creates a file-based blob store. If basePath is empty it
// defaults to "~/.ocrflow/ocr-runs".
func NewLocalFileStore(basePath string) *LocalFileStore {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			basePath = "/tmp/ocrflow/ocr-runs"
		} else {
			basePath = filepath.Join(home, ".ocrflow", "ocr-runs")
		}
	}
	return &LocalFileStore{basePath: basePath}
}

func (s *LocalFileStore) Kind() string { return "local" }

// Put writes data under key (the caller supplies "{engine}/{runId}/raw_response.json")
// and returns the absolute path it was written to.
func (s *LocalFileStore) Put(_ context.Context, key string, data []byte) (string, error) {
	fpath := filepath.Join(s.basePath, key)
	if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(fpath, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	log.Debug().Str("path", fpath).Int("bytes", len(data)).Msg("wrote raw OCR response blob")
	return fpath, nil
}

func (s *LocalFileStore) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *LocalFileStore) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("blob store path not writable: %w", err)
	}
	testFile := filepath.Join(s.basePath, ".healthcheck")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("blob store path not writable: %w", err)
	}
	os.Remove(testFile)
	return nil
}

var _ contracts.BlobStore = (*LocalFileStore)(nil)
