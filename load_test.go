package specutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileReadsAndDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrum.bin")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var seen []byte
	sf, err := LoadFile(path, func(buf []byte) (*SpecFile, error) {
		seen = buf
		return NewSpecFile(), nil
	})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if sf == nil {
		t.Fatal("expected a non-nil SpecFile")
	}
	if string(seen) != "hello" {
		t.Fatalf("expected tryDecode to see file contents, got %q", seen)
	}
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.bin"), func([]byte) (*SpecFile, error) {
		t.Fatal("tryDecode should not be called when the file is missing")
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadFilePropagatesDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := LoadFile(path, func([]byte) (*SpecFile, error) {
		return nil, ErrParse
	})
	if err != ErrParse {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}
