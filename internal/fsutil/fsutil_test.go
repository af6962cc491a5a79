package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadFileScoped(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	data, err := ReadFileScoped(path)
	if err != nil {
		t.Fatalf("ReadFileScoped: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestReadFileScoped_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := ReadFileScoped(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestAtomicWriteFile_Overwrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "record.json")
	if err := AtomicWriteFile(path, []byte("one"), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("two"), 0o600); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}
