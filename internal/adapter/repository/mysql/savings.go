package mysql

import (
	"context"
	"time"

	savingsDomain "coop-loans/internal/domain/savings"

	"gorm.io/gorm"
)

type SavingsRepository struct{ db *gorm.DB }

func NewSavingsRepository(db *gorm.DB) *SavingsRepository { return &SavingsRepository{db: db} }

func (r *SavingsRepository) Create(ctx context.Context, c *savingsDomain.Contribution) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// completed scopes to the member's settled ledger rows. Stored casing is not
// trusted, hence LOWER().
func (r *SavingsRepository) completed(ctx context.Context, memberID string, since *time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).
		Model(&savingsDomain.Contribution{}).
		Where("member_id = ? AND LOWER(status) = ?", memberID, string(savingsDomain.StatusCompleted))
	if since != nil {
		q = q.Where("contributed_at >= ?", since.UTC())
	}
	return q
}

func (r *SavingsRepository) Totals(ctx context.Context, memberID string, since *time.Time) (savingsDomain.Totals, error) {
	var out savingsDomain.Totals
	err := r.completed(ctx, memberID, since).
		Select(`COALESCE(SUM(amount), 0) AS total,
			COALESCE(SUM(CASE WHEN LOWER(type) = ? THEN amount ELSE 0 END), 0) AS mandatory,
			COALESCE(SUM(CASE WHEN LOWER(type) = ? THEN amount ELSE 0 END), 0) AS voluntary`,
			string(savingsDomain.TypeMandatory), string(savingsDomain.TypeVoluntary)).
		Scan(&out).Error
	return out, err
}

func (r *SavingsRepository) ContributionDates(ctx context.Context, memberID string, since *time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.completed(ctx, memberID, since).
		Order("contributed_at ASC").
		Pluck("contributed_at", &out).Error
	return out, err
}
