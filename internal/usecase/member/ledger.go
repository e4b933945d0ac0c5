package member

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "coop-loans/internal/domain/member"
	"coop-loans/internal/domain/savings"
	"coop-loans/pkg/money"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidContribution = errors.New("invalid contribution")

type ContributionInput struct {
	MemberID string
	Amount   string
	Type     string
	// Status defaults to completed.
	Status string
	// ContributedAt defaults to now and may not lie in the future.
	ContributedAt *time.Time
}

// RecordContribution appends one row to the member's savings ledger.
func (u *Usecase) RecordContribution(ctx context.Context, in ContributionInput) (*savings.Contribution, error) {
	if _, err := u.members.GetByMemberID(ctx, in.MemberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	amount, err := money.Parse(in.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be a positive number", ErrInvalidContribution)
	}
	typ, err := savings.ParseType(in.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContribution, err)
	}
	status := savings.StatusCompleted
	if strings.TrimSpace(in.Status) != "" {
		if status, err = savings.ParseStatus(in.Status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContribution, err)
		}
	}
	now := u.now().UTC()
	at := now
	if in.ContributedAt != nil {
		if in.ContributedAt.After(now) {
			return nil, fmt.Errorf("%w: contributed_at is in the future", ErrInvalidContribution)
		}
		at = in.ContributedAt.UTC()
	}

	c := &savings.Contribution{
		MemberID:      in.MemberID,
		Amount:        amount,
		Type:          typ,
		Status:        status,
		ContributedAt: at,
	}
	if err := u.savings.Create(ctx, c); err != nil {
		return nil, err
	}
	u.log.Info("contribution recorded",
		zap.String("member_id", in.MemberID),
		zap.String("type", string(typ)),
		zap.String("amount", money.Format(amount)))
	return c, nil
}

// UpdateStatus changes a member's standing. The join date is left alone.
func (u *Usecase) UpdateStatus(ctx context.Context, memberID, status string) error {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return err
	}
	if err := u.members.UpdateStatus(ctx, memberID, st); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	u.log.Info("member status changed", zap.String("member_id", memberID), zap.String("status", string(st)))
	return nil
}
