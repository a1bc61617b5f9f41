package backend

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
)

// seedData is the demo dataset the assistant runs against out of the
// box. Each top-level key becomes one record path.
//
//go:embed seed.json
var seedData []byte

// SeedIfEmpty populates the store from the embedded dataset when it
// holds no records yet. Returns the number of paths written (0 when the
// store was already populated).
func (s *Store) SeedIfEmpty(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	var dataset map[string]any
	if err := json.Unmarshal(seedData, &dataset); err != nil {
		return 0, fmt.Errorf("decode seed data: %w", err)
	}

	written := 0
	for path, value := range dataset {
		if err := s.Write(ctx, path, value); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
