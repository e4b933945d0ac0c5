package membermock

import (
	"context"

	domain "coop-loans/internal/domain/member"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn                 func(ctx context.Context, m *domain.Member) error
	GetByMemberIDFn          func(ctx context.Context, memberID string) (*domain.Member, error)
	GetByMemberIDForUpdateFn func(ctx context.Context, memberID string) (*domain.Member, error)
	UpdateStatusFn           func(ctx context.Context, memberID string, status domain.Status) error
}

// Fixed returns a Repo whose lookups always yield m.
func Fixed(m *domain.Member) *Repo {
	get := func(context.Context, string) (*domain.Member, error) { return m, nil }
	return &Repo{GetByMemberIDFn: get, GetByMemberIDForUpdateFn: get}
}

func (r *Repo) Create(ctx context.Context, m *domain.Member) error {
	if r.CreateFn != nil {
		return r.CreateFn(ctx, m)
	}
	return nil
}

func (r *Repo) GetByMemberID(ctx context.Context, memberID string) (*domain.Member, error) {
	if r.GetByMemberIDFn != nil {
		return r.GetByMemberIDFn(ctx, memberID)
	}
	return nil, context.Canceled
}

func (r *Repo) GetByMemberIDForUpdate(ctx context.Context, memberID string) (*domain.Member, error) {
	if r.GetByMemberIDForUpdateFn != nil {
		return r.GetByMemberIDForUpdateFn(ctx, memberID)
	}
	return nil, context.Canceled
}

func (r *Repo) UpdateStatus(ctx context.Context, memberID string, status domain.Status) error {
	if r.UpdateStatusFn != nil {
		return r.UpdateStatusFn(ctx, memberID, status)
	}
	return nil
}
