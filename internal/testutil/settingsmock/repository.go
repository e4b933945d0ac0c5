package settingsmock

import (
	"context"

	domain "coop-loans/internal/domain/settings"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	ListFn   func(ctx context.Context) ([]domain.Setting, error)
	UpsertFn func(ctx context.Context, s *domain.Setting) error
}

func (r *Repo) List(ctx context.Context) ([]domain.Setting, error) {
	if r.ListFn != nil {
		return r.ListFn(ctx)
	}
	return nil, context.Canceled
}

func (r *Repo) Upsert(ctx context.Context, s *domain.Setting) error {
	if r.UpsertFn != nil {
		return r.UpsertFn(ctx, s)
	}
	return nil
}
