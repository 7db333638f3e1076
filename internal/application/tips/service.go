package tips

import (
	"context"

	"github.com/pishield/pishield/internal/domain/tips"
)

type Service struct {
	Repo tips.Repository
}

func (s *Service) List(ctx context.Context, category string) ([]*tips.Tip, error) {
	out, err := s.Repo.List(ctx, category)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*tips.Tip{}
	}
	return out, nil
}
