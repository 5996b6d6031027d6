package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/application/port"
)

// LocalReceiptStore stores receipt files on the local filesystem under a
// configured directory. Stored names are random so uploads never collide
// and original filenames never touch the disk layout.
type LocalReceiptStore struct {
	dir    string
	logger *zap.Logger
}

// NewLocalReceiptStore creates the receipt directory if needed
func NewLocalReceiptStore(dir string, logger *zap.Logger) (*LocalReceiptStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipt directory: %w", err)
	}
	return &LocalReceiptStore{dir: dir, logger: logger}, nil
}

// Save writes the receipt content and returns the stored filename
func (s *LocalReceiptStore) Save(ctx context.Context, originalFilename string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write receipt file: %w", err)
	}

	s.logger.Debug("Stored receipt",
		zap.String("filename", name),
		zap.String("original", originalFilename))
	return name, nil
}

// Open returns a reader over a previously stored receipt
func (s *LocalReceiptStore) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	// Reject anything that could escape the receipt directory
	if filename != filepath.Base(filename) {
		return nil, fmt.Errorf("invalid receipt filename: %s", filename)
	}
	f, err := os.Open(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("open receipt file: %w", err)
	}
	return f, nil
}

// Verify interface compliance
var _ port.ReceiptStore = (*LocalReceiptStore)(nil)
