package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// ArchiveImpl implements domain.Archiver by serializing aged rows to
// JSONL, uploading them to object storage, and pruning the hot stores
// once the upload succeeds. Each run is recorded in the audit log.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	opps      domain.OpportunityStore
	positions domain.PositionStore
	audit     domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	opps domain.OpportunityStore,
	positions domain.PositionStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		opps:      opps,
		positions: positions,
		audit:     audit,
	}
}

// ArchiveOpportunities uploads opportunities analyzed before the cutoff
// to archive/opportunities/YYYY-MM.jsonl, prunes them from the hot store
// once the upload succeeds, and returns the archived count.
func (a *ArchiveImpl) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.opps.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	return archiveAndPrune(ctx, a, "opportunities", before, opps, a.opps.DeleteBefore)
}

// ArchiveClosedPositions uploads positions closed before the cutoff to
// archive/positions/YYYY-MM.jsonl, prunes them from the hot store once
// the upload succeeds, and returns the archived count.
func (a *ArchiveImpl) ArchiveClosedPositions(ctx context.Context, before time.Time) (int64, error) {
	positions, err := a.positions.ListClosedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive positions query: %w", err)
	}
	return archiveAndPrune(ctx, a, "positions", before, positions, a.positions.DeleteClosedBefore)
}

// archiveAndPrune uploads the records and only then deletes them. A
// failed upload leaves the hot rows untouched; a failed prune leaves
// rows that will be re-uploaded to the same key on the next run.
func archiveAndPrune[T any](
	ctx context.Context,
	a *ArchiveImpl,
	kind string,
	before time.Time,
	records []T,
	prune func(context.Context, time.Time) (int64, error),
) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}

	path := archivePath(kind, before)
	if err := a.writer.Write(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}

	count := int64(len(records))
	if _, err := prune(ctx, before); err != nil {
		return count, fmt.Errorf("s3blob: archive %s prune: %w", kind, err)
	}

	if err := a.audit.Log(ctx, "archive."+kind, map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive %s audit log: %w", kind, err)
	}
	return count, nil
}

// archivePath builds the object key for an archive file, partitioned by
// the year-month of the cutoff time.
//
//	archive/opportunities/2026-08.jsonl
//	archive/positions/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
