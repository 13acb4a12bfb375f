package catalogseed

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// LoadAll loads every named file concurrently and merges them into one set.
// Files are merged in the order given, so a product in a later file replaces
// one with the same id in an earlier file. Any failed file fails the whole
// load.
func LoadAll(ctx context.Context, loader Loader, names []string, logger zerolog.Logger) (*ProductSet, error) {
	logger = logger.With().Str("component", "catalog-merge").Logger()

	type loadResult struct {
		index int
		set   *ProductSet
		err   error
	}

	resultChan := make(chan loadResult, len(names))
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		go func(index int, name string) {
			defer wg.Done()

			set, err := loader.Load(ctx, name)
			resultChan <- loadResult{index: index, set: set, err: err}
		}(i, name)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(names))
	for result := range resultChan {
		results[result.index] = result
	}

	merged := NewProductSet(0)
	for i, result := range results {
		if result.err != nil {
			logger.Error().Err(result.err).Str("file", names[i]).Msg("failed to load catalogue file")
			return nil, fmt.Errorf("failed to load catalogue file %s: %w", names[i], result.err)
		}
		for _, p := range result.set.Products() {
			merged.Add(p)
		}
		logger.Info().Str("file", names[i]).Int("size", result.set.Size()).Msg("catalogue file merged")
	}

	logger.Info().Int("files", len(names)).Int("total_products", merged.Size()).Msg("catalogue loaded")
	return merged, nil
}
