package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// PerformanceStore implements domain.PerformanceStore using PostgreSQL.
// The ledger is a single row; Save upserts it wholesale.
type PerformanceStore struct {
	pool *pgxpool.Pool
}

// NewPerformanceStore creates a new PerformanceStore backed by the given
// connection pool.
func NewPerformanceStore(pool *pgxpool.Pool) *PerformanceStore {
	return &PerformanceStore{pool: pool}
}

// Load returns the persisted ledger. A database that has never recorded
// a trade yields a zero ledger, not an error.
func (s *PerformanceStore) Load(ctx context.Context) (domain.PerformanceLedger, error) {
	ledger := domain.NewPerformanceLedger()

	var perChainJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT all_time_profit, all_time_loss, successful_trades, failed_trades, per_chain
		 FROM performance WHERE id = 1`,
	).Scan(
		&ledger.AllTimeProfit, &ledger.AllTimeLoss,
		&ledger.SuccessfulTrades, &ledger.FailedTrades,
		&perChainJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger, nil
		}
		return domain.PerformanceLedger{}, fmt.Errorf("postgres: load performance ledger: %w", err)
	}

	if len(perChainJSON) > 0 {
		if err := json.Unmarshal(perChainJSON, &ledger.PerChain); err != nil {
			return domain.PerformanceLedger{}, fmt.Errorf("postgres: decode per-chain ledger: %w", err)
		}
	}
	if ledger.PerChain == nil {
		ledger.PerChain = make(map[domain.Chain]domain.ChainPerformance)
	}
	return ledger, nil
}

// Save upserts the ledger row.
func (s *PerformanceStore) Save(ctx context.Context, ledger domain.PerformanceLedger) error {
	perChainJSON, err := json.Marshal(ledger.PerChain)
	if err != nil {
		return fmt.Errorf("postgres: encode per-chain ledger: %w", err)
	}

	const query = `
		INSERT INTO performance (
			id, all_time_profit, all_time_loss, successful_trades, failed_trades, per_chain, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			all_time_profit   = EXCLUDED.all_time_profit,
			all_time_loss     = EXCLUDED.all_time_loss,
			successful_trades = EXCLUDED.successful_trades,
			failed_trades     = EXCLUDED.failed_trades,
			per_chain         = EXCLUDED.per_chain,
			updated_at        = NOW()`

	_, err = s.pool.Exec(ctx, query,
		ledger.AllTimeProfit, ledger.AllTimeLoss,
		ledger.SuccessfulTrades, ledger.FailedTrades,
		perChainJSON,
	)
	if err != nil {
		return fmt.Errorf("postgres: save performance ledger: %w", err)
	}
	return nil
}
