package member

import "context"

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByMemberID(ctx context.Context, memberID string) (*Member, error)
	// Locks the member row until the surrounding transaction ends.
	GetByMemberIDForUpdate(ctx context.Context, memberID string) (*Member, error)
	// Admin-only path; join date is never touched.
	UpdateStatus(ctx context.Context, memberID string, status Status) error
}
