package retention

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kntaj/ocrflow/pkg/contracts"
)

// LocalArchiver moves raw-response blobs older than olderThan out of the
// blob store's base path into a compressed cold-storage subdirectory,
// deleting the original only once the archive write has succeeded.
type LocalArchiver struct {
	basePath    string
	archivePath string
}

// NewLocalArchiver builds a file-based archiver rooted at basePath (the
// same base path the blob store writes raw responses under).
func NewLocalArchiver(basePath string) *LocalArchiver {
	return &LocalArchiver{basePath: basePath, archivePath: filepath.Join(basePath, "_archive")}
}

func (a *LocalArchiver) Kind() string { return "local" }

// ArchiveRawResponses walks {basePath}/{engine}/*/raw_response.json and moves
// files older than olderThan (a Unix timestamp) into a gzip-compressed
// archive, returning the count archived. tenantID is accepted for interface
// symmetry with ArchiveDriver but unused here: the local store keeps one
// shared basePath rather than partitioning by tenant.
func (a *LocalArchiver) ArchiveRawResponses(_ context.Context, tenantID string, olderThan int64) (int, error) {
	if err := os.MkdirAll(a.archivePath, 0o755); err != nil {
		return 0, fmt.Errorf("create archive dir: %w", err)
	}

	archived := 0
	err := filepath.WalkDir(a.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "raw_response.json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Unix() > olderThan {
			return nil
		}

		if err := a.archiveOne(path); err != nil {
			return nil // individual failures don't abort the whole cycle
		}
		if err := os.Remove(path); err != nil {
			return nil
		}
		archived++
		return nil
	})
	return archived, err
}

func (a *LocalArchiver) archiveOne(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dstName := filepath.Join(a.archivePath, strconv.FormatInt(time.Now().UnixNano(), 10)+".json.gz")
	dst, err := os.Create(dstName)
	if err != nil {
		return err
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	defer gw.Close()

	_, err = io.Copy(gw, src)
	return err
}

func (a *LocalArchiver) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(a.archivePath, 0o755); err != nil {
		return fmt.Errorf("archive path not writable: %w", err)
	}
	return nil
}

var _ contracts.ArchiveDriver = (*LocalArchiver)(nil)
