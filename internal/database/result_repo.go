package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kdimtricp/signlang/internal/models"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// ResultRepository stores applied classifications.
type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const classificationColumns = `id, session_id, object_key, url, content_type, size,
	digest, label, display_label, confidence, created_at`

func (r *ResultRepository) Insert(ctx context.Context, c *models.Classification) error {
	query := r.db.rebind(`
		INSERT INTO classifications (` + classificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query,
		c.ID,
		c.SessionID,
		c.ObjectKey,
		c.URL,
		c.ContentType,
		c.Size,
		c.Digest,
		c.Label,
		c.DisplayLabel,
		c.Confidence,
		c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert classification: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetByID(ctx context.Context, id string) (*models.Classification, error) {
	query := r.db.rebind(`SELECT ` + classificationColumns + ` FROM classifications WHERE id = ?`)

	c, err := scanClassification(r.db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.Wrap(models.ErrNotFound, "classification "+id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification: %w", err)
	}
	return c, nil
}

// ListRecent returns the newest classifications first. A non-positive limit
// uses DefaultHistoryLimit.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]models.Classification, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	query := r.db.rebind(`SELECT ` + classificationColumns + `
		FROM classifications
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	defer rows.Close()

	var results []models.Classification
	for rows.Next() {
		c, err := scanClassification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		results = append(results, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	return results, nil
}

func (r *ResultRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClassification(row rowScanner) (*models.Classification, error) {
	var c models.Classification
	err := row.Scan(
		&c.ID,
		&c.SessionID,
		&c.ObjectKey,
		&c.URL,
		&c.ContentType,
		&c.Size,
		&c.Digest,
		&c.Label,
		&c.DisplayLabel,
		&c.Confidence,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
