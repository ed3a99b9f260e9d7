package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore persists visit attachments and returns the path stored on the
// visit record.
type FileStore interface {
	Save(visitID int, filename string, file io.Reader) (string, error)
	Delete(filePath string) error
}

// LocalFileStore writes attachments under <root>/<visit_id>/. The returned
// path is the URL-style path the record stores ("/uploads/7/xyz_scan.pdf"),
// served back via the static uploads route.
type LocalFileStore struct {
	root string
}

func NewLocalFileStore() *LocalFileStore {
	root := os.Getenv("UPLOAD_DIR")
	if root == "" {
		root = "uploads"
	}
	return &LocalFileStore{root: root}
}

func (s *LocalFileStore) Save(visitID int, filename string, file io.Reader) (string, error) {
	dir := filepath.Join(s.root, fmt.Sprintf("%d", visitID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Prefix with a short random id so repeated uploads of the same
	// filename never overwrite each other
	stored := uuid.NewString()[:8] + "_" + filepath.Base(filename)
	dst, err := os.Create(filepath.Join(dir, stored))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return fmt.Sprintf("/%s/%d/%s", filepath.ToSlash(s.root), visitID, stored), nil
}

func (s *LocalFileStore) Delete(filePath string) error {
	relative := strings.TrimPrefix(filePath, "/")
	if _, err := os.Stat(relative); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(relative)
}
