package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

// Storage is a blob store on local disk. Writes stream into a temp file
// and rename into place only on full success, so an aborted or oversized
// upload never becomes a readable blob.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/blobs"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

const copyChunkSize = 32 * 1024

// Save consumes data incrementally, enforcing limit as bytes arrive.
// It never holds the payload in memory.
func (s *Storage) Save(ctx context.Context, key string, data io.Reader, limit int64) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, "upload-*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	var written int64
	buf := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			discard()
			return fmt.Errorf("save blob: %w", err)
		}

		n, readErr := data.Read(buf)
		if n > 0 {
			written += int64(n)
			if limit > 0 && written > limit {
				discard()
				return domain.WrapError(domain.ErrPayloadTooLarge, "save blob",
					fmt.Errorf("payload exceeds %d bytes", limit))
			}
			if _, err := tmp.Write(buf[:n]); err != nil {
				discard()
				return fmt.Errorf("write blob: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			discard()
			return fmt.Errorf("read upload stream: %w", readErr)
		}
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("commit blob: %w", err)
	}
	return nil
}

// Open returns a lazy forward-only stream. Abandoning it mid-read and
// closing early is fine.
func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "open blob", fmt.Errorf("key %s", key))
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.WrapError(domain.ErrNotFound, "delete blob", fmt.Errorf("key %s", key))
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// resolve rejects keys that would escape the storage dir. Handles are
// generated uuids, so anything else is hostile input.
func (s *Storage) resolve(key string) (string, error) {
	if key == "" || filepath.Base(key) != key {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve blob key",
			fmt.Errorf("malformed key %q", key))
	}
	return filepath.Join(s.basePath, key), nil
}
