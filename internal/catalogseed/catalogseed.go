// Package catalogseed reads product catalogue files for bulk import.
//
// A catalogue file is gzip-compressed JSON lines: one product object per
// line, blank lines ignored. Files can be read from the local file system or
// from S3, with S3 tried first when configured.
package catalogseed

import "context"

// Loader defines the interface for loading catalogue files.
type Loader interface {
	// Load reads a gzipped catalogue file and returns its products.
	Load(ctx context.Context, name string) (*ProductSet, error)
}
