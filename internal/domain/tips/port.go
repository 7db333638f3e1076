package tips

import "context"

// Repository port. category == "" lists everything.
type Repository interface {
	List(ctx context.Context, category string) ([]*Tip, error)
}
