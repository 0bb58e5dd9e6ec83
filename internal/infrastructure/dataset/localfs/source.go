package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kirillkom/meal-nutrition/internal/core/ports"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/dataset"
)

// Source reads the reference dataset from a local file.
type Source struct {
	path string
}

func New(path string) (*Source, error) {
	if path == "" {
		path = "./data/foods.json"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset path: %w", err)
	}
	return &Source{path: abs}, nil
}

func (s *Source) Fetch(ctx context.Context) (ports.DatasetPayload, error) {
	if err := ctx.Err(); err != nil {
		return ports.DatasetPayload{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ports.DatasetPayload{}, fmt.Errorf("read dataset file: %w", err)
	}
	return ports.DatasetPayload{
		Data:   data,
		Format: dataset.FormatFromName(s.path, ""),
		Origin: s.path,
	}, nil
}

func (s *Source) Describe() string {
	return "file://" + s.path
}
