package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given
// connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// marshalNullable encodes v as JSON, returning nil (SQL NULL) for a nil
// pointer.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

const opportunitySelectCols = `id, symbol, name, chain, address,
	price, change_24h, volume_24h, market_cap,
	security_score, risk_level, warnings, anomaly, audit, social, score, analyzed_at`

func scanOpportunityRow(row pgx.Row) (domain.Opportunity, error) {
	var (
		o            domain.Opportunity
		chain, risk  string
		warningsJSON []byte
		anomalyJSON  []byte
		auditJSON    []byte
		socialJSON   []byte
	)

	err := row.Scan(
		&o.ID, &o.Symbol, &o.Name, &chain, &o.Address,
		&o.Price, &o.Change24h, &o.Volume24h, &o.MarketCap,
		&o.Security.Score, &risk, &warningsJSON, &anomalyJSON,
		&auditJSON, &socialJSON, &o.Score, &o.AnalyzedAt,
	)
	if err != nil {
		return domain.Opportunity{}, err
	}
	o.Chain = domain.Chain(chain)
	o.Security.RiskLevel = domain.RiskLevel(risk)

	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &o.Security.Warnings); err != nil {
			return domain.Opportunity{}, fmt.Errorf("decode warnings: %w", err)
		}
	}
	if len(anomalyJSON) > 0 {
		var profile domain.AnomalyProfile
		if err := json.Unmarshal(anomalyJSON, &profile); err != nil {
			return domain.Opportunity{}, fmt.Errorf("decode anomaly profile: %w", err)
		}
		o.Anomaly = &profile
	}
	if len(auditJSON) > 0 {
		var check domain.AuditCheck
		if err := json.Unmarshal(auditJSON, &check); err != nil {
			return domain.Opportunity{}, fmt.Errorf("decode audit check: %w", err)
		}
		o.Audit = &check
	}
	if len(socialJSON) > 0 {
		var metrics domain.SocialMetrics
		if err := json.Unmarshal(socialJSON, &metrics); err != nil {
			return domain.Opportunity{}, fmt.Errorf("decode social metrics: %w", err)
		}
		o.Social = &metrics
	}
	return o, nil
}

// InsertBatch inserts a batch of scored opportunities in one transaction.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin opportunity batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO opportunities (
			id, symbol, name, chain, address,
			price, change_24h, volume_24h, market_cap,
			security_score, risk_level, warnings, anomaly, audit, social, score, analyzed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17
		)`

	for _, o := range opps {
		warningsJSON, err := json.Marshal(o.Security.Warnings)
		if err != nil {
			return fmt.Errorf("postgres: encode warnings for %s: %w", o.ID, err)
		}
		anomalyJSON, err := marshalNullable(o.Anomaly)
		if err != nil {
			return fmt.Errorf("postgres: encode anomaly profile for %s: %w", o.ID, err)
		}
		auditJSON, err := marshalNullable(o.Audit)
		if err != nil {
			return fmt.Errorf("postgres: encode audit check for %s: %w", o.ID, err)
		}
		socialJSON, err := marshalNullable(o.Social)
		if err != nil {
			return fmt.Errorf("postgres: encode social metrics for %s: %w", o.ID, err)
		}

		if _, err := tx.Exec(ctx, query,
			o.ID, o.Symbol, o.Name, string(o.Chain), o.Address,
			o.Price, o.Change24h, o.Volume24h, o.MarketCap,
			o.Security.Score, string(o.Security.RiskLevel), warningsJSON, anomalyJSON,
			auditJSON, socialJSON, o.Score, o.AnalyzedAt,
		); err != nil {
			return fmt.Errorf("postgres: insert opportunity %s: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit opportunity batch: %w", err)
	}
	return nil
}

// ListRecent returns the latest opportunities ordered by analysis time,
// best score first within a scan.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+opportunitySelectCols+` FROM opportunities
		 ORDER BY analyzed_at DESC, score DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		o, err := scanOpportunityRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

// ListBefore returns opportunities analyzed before the cutoff so the
// caller can archive them prior to deletion.
func (s *OpportunityStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.Opportunity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+opportunitySelectCols+` FROM opportunities
		 WHERE analyzed_at < $1
		 ORDER BY analyzed_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before cutoff: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		o, err := scanOpportunityRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

// DeleteBefore removes opportunities analyzed before the cutoff. Callers
// must archive the rows first; deletion is not recoverable.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM opportunities WHERE analyzed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}
