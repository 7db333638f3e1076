package faults

import "context"

// Repository port for the fault audit table.
type Repository interface {
	Save(ctx context.Context, f *Fault) error
	Latest(ctx context.Context, limit int) ([]*Fault, error)
}
