package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/warehouse"
)

// Stager pushes local log files into an internal stage as gzip objects and
// removes them again. Uploads happen outside any transaction, so a failed
// pipeline compensates with an explicit Remove.
type Stager struct {
	client warehouse.Client
	stage  string
	tmpDir string
}

func NewStager(client warehouse.Client, stage string) *Stager {
	return &Stager{client: client, stage: stage, tmpDir: os.TempDir()}
}

// StagedName is the object name a file gets inside the stage.
func StagedName(path string) string {
	return filepath.Base(path) + ".gz"
}

// Upload compresses path into a scratch file and PUTs it to the stage.
// Compression happens locally so the upload cost scales with the compressed
// size; the server is told the payload is already gzip and must not compress
// again. OVERWRITE keeps retries from colliding with a leftover object.
func (s *Stager) Upload(ctx context.Context, path string) (string, error) {
	tmp, err := s.compress(path)
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(filepath.Dir(tmp))

	uri := "file://" + filepath.ToSlash(tmp)
	put := fmt.Sprintf("PUT '%s' @%s AUTO_COMPRESS=FALSE SOURCE_COMPRESSION=GZIP OVERWRITE=TRUE",
		sqlEscape(uri), s.stage)
	if _, err := s.client.Exec(ctx, put); err != nil {
		return "", fmt.Errorf("put %s to @%s: %w", StagedName(path), s.stage, err)
	}
	return StagedName(path), nil
}

// Remove drops a staged object. Callers treat failures as best-effort: by the
// time Remove runs the tables are either committed or rolled back, and an
// orphaned stage object only costs storage.
func (s *Stager) Remove(ctx context.Context, stagedFile string) error {
	_, err := s.client.Exec(ctx, fmt.Sprintf("REMOVE @%s/%s", s.stage, stagedFile))
	return err
}

// compress writes path as gzip into a fresh scratch directory, named so the
// PUT produces exactly StagedName(path) inside the stage.
func (s *Stager) compress(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	dir, err := os.MkdirTemp(s.tmpDir, "gatling-stage-")
	if err != nil {
		return "", err
	}
	tmp := filepath.Join(dir, StagedName(path))
	dst, err := os.Create(tmp)
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}

	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		dst.Close()
		os.RemoveAll(dir)
		return "", fmt.Errorf("compress %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		os.RemoveAll(dir)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return tmp, nil
}
