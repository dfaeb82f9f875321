package historyrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/history"
	"github.com/yanqian/rockwatch/internal/domain/risk"
)

// PostgresRepository persists assessments and alerts in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveAssessment stores the full bundle as JSON next to the indexed columns.
func (r *PostgresRepository) SaveAssessment(ctx context.Context, bundle evaluation.Bundle) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO assessments (id, site_id, risk_level, risk_score, confidence, model_used, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, bundle.ID, bundle.Site.ID, string(bundle.Assessment.Level), bundle.Assessment.Score,
		bundle.Assessment.Confidence, bundle.Assessment.ModelUsed, payload, bundle.CreatedAt)
	return err
}

func (r *PostgresRepository) GetAssessment(ctx context.Context, id string) (evaluation.Bundle, bool, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM assessments WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return evaluation.Bundle{}, false, nil
	}
	if err != nil {
		return evaluation.Bundle{}, false, err
	}
	var bundle evaluation.Bundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return evaluation.Bundle{}, false, err
	}
	return bundle, true, nil
}

func (r *PostgresRepository) ListAssessments(ctx context.Context, siteID string, limit int) ([]evaluation.Bundle, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payload
		FROM assessments
		WHERE site_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []evaluation.Bundle
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var bundle evaluation.Bundle
		if err := json.Unmarshal(payload, &bundle); err != nil {
			return nil, err
		}
		out = append(out, bundle)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SaveAlert(ctx context.Context, alert history.Alert) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO alerts (id, site_id, site_name, risk_level, risk_score, statement, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, alert.ID, alert.SiteID, alert.SiteName, string(alert.Level), alert.Score, alert.Statement,
		string(alert.Status), alert.CreatedAt)
	return err
}

func (r *PostgresRepository) GetAlert(ctx context.Context, id string) (history.Alert, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE id = $1
		LIMIT 1
	`, id)
	if err != nil {
		return history.Alert{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return history.Alert{}, false, rows.Err()
	}
	alert, err := scanAlert(rows)
	if err != nil {
		return history.Alert{}, false, err
	}
	return alert, true, rows.Err()
}

func (r *PostgresRepository) TransitionAlert(ctx context.Context, alert history.Alert, from ...history.Status) (bool, error) {
	expected := make([]string, len(from))
	for i, status := range from {
		expected[i] = string(status)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE alerts
		SET status = $2, acknowledged_by = $3, acknowledged_at = $4, resolved_at = $5
		WHERE id = $1 AND status = ANY($6)
	`, alert.ID, string(alert.Status), alert.AcknowledgedBy, alert.AcknowledgedAt, alert.ResolvedAt, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) ListAlerts(ctx context.Context) ([]history.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM alerts
		WHERE status = $1 AND created_at < $2
	`, string(history.StatusResolved), cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

const alertColumns = `id, site_id, site_name, risk_level, risk_score, statement, status, created_at,
		acknowledged_by, acknowledged_at, resolved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (history.Alert, error) {
	var (
		alert          history.Alert
		level, status  string
		acknowledgedBy *string
	)
	if err := row.Scan(&alert.ID, &alert.SiteID, &alert.SiteName, &level, &alert.Score, &alert.Statement,
		&status, &alert.CreatedAt, &acknowledgedBy, &alert.AcknowledgedAt, &alert.ResolvedAt); err != nil {
		return history.Alert{}, err
	}
	alert.Level = risk.RiskLevel(level)
	alert.Status = history.Status(status)
	alert.CreatedAt = alert.CreatedAt.UTC()
	if acknowledgedBy != nil {
		alert.AcknowledgedBy = *acknowledgedBy
	}
	return alert, nil
}

var _ history.Repository = (*PostgresRepository)(nil)
