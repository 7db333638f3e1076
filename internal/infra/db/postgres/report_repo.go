package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/pishield/pishield/internal/domain/reports"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Insert(ctx context.Context, rep *domain.Report) (int64, error) {
	const q = `
INSERT INTO analysis_reports
  (user_id, content_type, content_text, credibility_score, analysis_result, flags, recommendations, reasoning, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id;
`
	flags, err := jsonList(rep.Flags)
	if err != nil {
		return 0, err
	}
	recs, err := jsonList(rep.Recommendations)
	if err != nil {
		return 0, err
	}
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var id int64
	err = r.db.QueryRowContext(ctx, q,
		rep.UserID, rep.ContentType,
		domain.Truncate(rep.ContentPreview, domain.StoredPreviewLimit),
		rep.CredibilityScore, rep.Analysis, flags, recs, rep.Reasoning, created,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	rep.ID = id
	return id, nil
}

func (r *ReportRepository) HistoryByUser(ctx context.Context, userID string, limit, offset, previewLen int) ([]*domain.HistoryItem, error) {
	const q = `
SELECT id, content_type, credibility_score, SUBSTRING(content_text FROM 1 FOR $1) AS content_preview, created_at
FROM analysis_reports
WHERE user_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4;
`
	return r.queryHistory(ctx, q, previewLen, userID, limit, offset)
}

func (r *ReportRepository) PublicHistory(ctx context.Context, limit, offset, previewLen int) ([]*domain.HistoryItem, error) {
	const q = `
SELECT id, content_type, credibility_score, SUBSTRING(content_text FROM 1 FOR $1) AS content_preview, created_at
FROM analysis_reports
WHERE user_id IS NULL
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
	return r.queryHistory(ctx, q, previewLen, limit, offset)
}

func (r *ReportRepository) queryHistory(ctx context.Context, q string, args ...any) ([]*domain.HistoryItem, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.HistoryItem
	for rows.Next() {
		var it domain.HistoryItem
		var created time.Time
		if err := rows.Scan(&it.ID, &it.ContentType, &it.CredibilityScore, &it.ContentPreview, &created); err != nil {
			return nil, err
		}
		it.CreatedAt = created
		out = append(out, &it)
	}
	return out, rows.Err()
}

func jsonList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
