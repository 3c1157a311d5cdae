package domain

import (
	"context"
	"time"
)

// BlobWriter writes serialized objects to cold storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte) error
}

// Archiver moves aged rows from the database into cold storage.
type Archiver interface {
	ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error)
	ArchiveClosedPositions(ctx context.Context, before time.Time) (int64, error)
}
