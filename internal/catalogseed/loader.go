package catalogseed

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"luxe-store/internal/model"

	"github.com/rs/zerolog"
)

// cancelCheckEvery is how many lines are read between context checks.
const cancelCheckEvery = 1000

// fileLoader implements Loader for reading gzipped catalogue files from disk.
type fileLoader struct {
	dir    string
	logger zerolog.Logger
}

// NewFileLoader creates a file-based catalogue loader. Names passed to Load
// are resolved against dir; an empty dir means the working directory.
func NewFileLoader(dir string, logger zerolog.Logger) Loader {
	return &fileLoader{
		dir:    dir,
		logger: logger.With().Str("component", "catalog-loader").Logger(),
	}
}

// Load reads a gzipped catalogue file and returns its products.
func (l *fileLoader) Load(ctx context.Context, name string) (*ProductSet, error) {
	path := name
	if l.dir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(l.dir, name)
	}

	l.logger.Info().Str("file", path).Msg("loading catalogue file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open catalogue file")
		return nil, fmt.Errorf("failed to open catalogue file %s: %w", path, err)
	}
	defer file.Close()

	set, err := decodeProducts(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read catalogue file")
		return nil, fmt.Errorf("failed to read catalogue file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int("products_loaded", set.Size()).
		Msg("catalogue file loaded successfully")

	return set, nil
}

// decodeProducts reads gzipped JSON lines from r.
func decodeProducts(ctx context.Context, r io.Reader) (*ProductSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	set := NewProductSet(256)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var p model.Product
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		p.ID = strings.TrimSpace(p.ID)
		set.Add(p)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, ctx.Err()
}
