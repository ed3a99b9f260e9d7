package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalFileStoreSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	store := &LocalFileStore{root: "uploads"}

	path, err := store.Save(7, "scan.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(path, "/uploads/7/") || !strings.HasSuffix(path, "_scan.pdf") {
		t.Errorf("stored path = %q", path)
	}

	onDisk := filepath.Join(dir, strings.TrimPrefix(path, "/"))
	data, err := os.ReadFile(onDisk)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("stored content = %q", data)
	}

	if err := store.Delete(path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Error("file still present after delete")
	}
}

func TestLocalFileStoreSameFilenameDoesNotCollide(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	store := &LocalFileStore{root: "uploads"}
	first, err := store.Save(7, "scan.pdf", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := store.Save(7, "scan.pdf", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first == second {
		t.Errorf("both uploads stored at %q", first)
	}

	if err := store.Delete("/uploads/7/never_there.pdf"); err != nil {
		t.Errorf("Delete of a missing file should be a no-op, got %v", err)
	}
}
