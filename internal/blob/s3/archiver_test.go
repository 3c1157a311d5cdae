package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenscout/tokenscout/internal/domain"
)

type fakeWriter struct {
	writes map[string][]byte
	err    error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{writes: make(map[string][]byte)}
}

func (f *fakeWriter) Write(_ context.Context, key string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.writes[key] = data
	return nil
}

type fakeOppStore struct {
	opps    []domain.Opportunity
	deletes int
}

func (f *fakeOppStore) InsertBatch(context.Context, []domain.Opportunity) error { return nil }

func (f *fakeOppStore) ListRecent(context.Context, int) ([]domain.Opportunity, error) {
	return nil, nil
}

func (f *fakeOppStore) ListBefore(_ context.Context, cutoff time.Time) ([]domain.Opportunity, error) {
	var out []domain.Opportunity
	for _, o := range f.opps {
		if o.AnalyzedAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOppStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.Opportunity
	var removed int64
	for _, o := range f.opps {
		if o.AnalyzedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	f.opps = kept
	f.deletes++
	return removed, nil
}

type fakePosStore struct {
	positions []domain.Position
}

func (f *fakePosStore) Create(context.Context, domain.Position) error { return nil }
func (f *fakePosStore) Update(context.Context, domain.Position) error { return nil }
func (f *fakePosStore) ListOpen(context.Context) ([]domain.Position, error) {
	return nil, nil
}
func (f *fakePosStore) GetByID(context.Context, string) (domain.Position, error) {
	return domain.Position{}, domain.ErrNotFound
}
func (f *fakePosStore) ListHistory(context.Context, domain.ListOpts) ([]domain.Position, error) {
	return nil, nil
}

func (f *fakePosStore) ListClosedBefore(_ context.Context, cutoff time.Time) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range f.positions {
		if p.Status == domain.PositionStatusClosed && p.ClosedAt != nil && p.ClosedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosStore) DeleteClosedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.Position
	var removed int64
	for _, p := range f.positions {
		if p.Status == domain.PositionStatusClosed && p.ClosedAt != nil && p.ClosedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	f.positions = kept
	return removed, nil
}

type fakeAudit struct {
	events []string
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func agedOpportunity(id string, analyzedAt time.Time) domain.Opportunity {
	return domain.Opportunity{ID: id, Symbol: "AAA", Chain: domain.ChainEth, AnalyzedAt: analyzedAt}
}

func TestArchiveOpportunitiesUploadsThenPrunes(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	opps := &fakeOppStore{opps: []domain.Opportunity{
		agedOpportunity("o1", cutoff.Add(-48*time.Hour)),
		agedOpportunity("o2", cutoff.Add(-24*time.Hour)),
		agedOpportunity("o3", cutoff.Add(time.Hour)), // newer than the cutoff
	}}
	writer := newFakeWriter()
	audit := &fakeAudit{}
	arch := NewArchiver(writer, opps, &fakePosStore{}, audit)

	count, err := arch.ArchiveOpportunities(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	data, ok := writer.writes["archive/opportunities/2026-08.jsonl"]
	require.True(t, ok, "expected an upload under the cutoff's year-month key")
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))

	assert.Len(t, opps.opps, 1, "rows newer than the cutoff must survive")
	assert.Equal(t, []string{"archive.opportunities"}, audit.events)
}

func TestArchiveOpportunitiesUploadFailureKeepsRows(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	opps := &fakeOppStore{opps: []domain.Opportunity{
		agedOpportunity("o1", cutoff.Add(-48*time.Hour)),
		agedOpportunity("o2", cutoff.Add(-24*time.Hour)),
	}}
	writer := newFakeWriter()
	writer.err = fmt.Errorf("s3 unavailable")
	arch := NewArchiver(writer, opps, &fakePosStore{}, &fakeAudit{})

	count, err := arch.ArchiveOpportunities(context.Background(), cutoff)
	require.Error(t, err)
	assert.Zero(t, count)

	assert.Len(t, opps.opps, 2, "a failed upload must not destroy the hot rows")
	assert.Zero(t, opps.deletes)
}

func TestArchiveClosedPositionsUploadFailureKeepsRows(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	closedAt := cutoff.Add(-72 * time.Hour)
	positions := &fakePosStore{positions: []domain.Position{{
		ID:       "p1",
		Asset:    "AAA",
		Chain:    domain.ChainEth,
		Status:   domain.PositionStatusClosed,
		ClosedAt: &closedAt,
	}}}
	writer := newFakeWriter()
	writer.err = fmt.Errorf("s3 unavailable")
	arch := NewArchiver(writer, &fakeOppStore{}, positions, &fakeAudit{})

	count, err := arch.ArchiveClosedPositions(context.Background(), cutoff)
	require.Error(t, err)
	assert.Zero(t, count)
	assert.Len(t, positions.positions, 1, "a failed upload must not destroy the hot rows")
}

func TestArchiveNothingToDo(t *testing.T) {
	arch := NewArchiver(newFakeWriter(), &fakeOppStore{}, &fakePosStore{}, &fakeAudit{})

	count, err := arch.ArchiveOpportunities(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, count)
}
