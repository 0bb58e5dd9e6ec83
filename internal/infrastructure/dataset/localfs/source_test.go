package localfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/meal-nutrition/internal/infrastructure/dataset"
)

func TestFetchReadsFileAndDetectsFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foods.yaml")
	if err := os.WriteFile(path, []byte("foods: {}\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	payload, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if payload.Format != dataset.FormatYAML {
		t.Fatalf("expected yaml format, got %q", payload.Format)
	}
	if string(payload.Data) != "foods: {}\n" {
		t.Fatalf("unexpected payload %q", payload.Data)
	}
}

func TestFetchMissingFileIsNotExist(t *testing.T) {
	src, err := New(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = src.Fetch(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}
