package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"OptionLens/internal/domain/models"
	"OptionLens/internal/domain/repository"
)

// ClickHouseArchive implements Archive over a ClickHouse table. The
// scalar columns carry what queries filter and sort on; the full
// snapshot travels in a JSON payload column so the density grids do
// not need their own schema.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates a ClickHouse snapshot archive.
func NewClickHouseArchive(db *sql.DB, table string) repository.Archive {
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (a *ClickHouseArchive) Store(ctx context.Context, s *models.AnalysisSnapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (id, ticker, as_of, expiration, days_to_expiry, spot, risk_free_rate, method, skewness, excess_kurtosis, implied_move_pct, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", a.table)
	_, err = a.db.ExecContext(ctx, q,
		s.ID,
		s.Ticker,
		s.AsOf,
		s.Expiration,
		s.DaysToExpiry,
		s.Spot,
		s.RiskFreeRate,
		s.Method,
		s.Statistics.Skewness,
		s.Statistics.ExcessKurtosis,
		s.Statistics.ImpliedMovePct,
		string(payload),
	)
	return err
}

func (a *ClickHouseArchive) Recent(ctx context.Context, ticker string, since time.Time, limit int) ([]*models.AnalysisSnapshot, error) {
	q := fmt.Sprintf("SELECT payload FROM %s WHERE ticker = ? AND as_of >= ? ORDER BY as_of DESC LIMIT ?", a.table)
	rows, err := a.db.QueryContext(ctx, q, ticker, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.AnalysisSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var s models.AnalysisSnapshot
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			// a corrupt row must not poison the whole corpus
			continue
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // Managed by pkg
}
