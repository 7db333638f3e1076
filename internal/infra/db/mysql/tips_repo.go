package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/pishield/pishield/internal/domain/tips"
)

type TipsRepository struct {
	db *sql.DB
}

func NewTipsRepository(db *sql.DB) *TipsRepository {
	return &TipsRepository{db: db}
}

func (r *TipsRepository) List(ctx context.Context, category string) ([]*domain.Tip, error) {
	q := `SELECT id, category, title, content, created_at FROM educational_tips`
	args := []any{}
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY created_at DESC;`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Tip
	for rows.Next() {
		var t domain.Tip
		var created time.Time
		if err := rows.Scan(&t.ID, &t.Category, &t.Title, &t.Content, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = created
		out = append(out, &t)
	}
	return out, rows.Err()
}
