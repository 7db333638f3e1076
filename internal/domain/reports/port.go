package reports

import "context"

// Repository port (interface for persistence)
type Repository interface {
	// Insert appends a row and returns the server-assigned id.
	Insert(ctx context.Context, rep *Report) (int64, error)
	// HistoryByUser returns rows owned by userID, created_at DESC,
	// previews truncated to previewLen.
	HistoryByUser(ctx context.Context, userID string, limit, offset, previewLen int) ([]*HistoryItem, error)
	// PublicHistory returns rows with no owner, same ordering contract.
	PublicHistory(ctx context.Context, limit, offset, previewLen int) ([]*HistoryItem, error)
}
