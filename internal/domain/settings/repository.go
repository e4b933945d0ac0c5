package settings

import "context"

type Repository interface {
	List(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, s *Setting) error
}
