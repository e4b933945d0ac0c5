package mysql

import (
	"context"

	memberDomain "coop-loans/internal/domain/member"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberRepository struct{ db *gorm.DB }

func NewMemberRepository(db *gorm.DB) *MemberRepository { return &MemberRepository{db: db} }

func (r *MemberRepository) Create(ctx context.Context, m *memberDomain.Member) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MemberRepository) GetByMemberID(ctx context.Context, memberID string) (*memberDomain.Member, error) {
	var out memberDomain.Member
	if err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MemberRepository) GetByMemberIDForUpdate(ctx context.Context, memberID string) (*memberDomain.Member, error) {
	var out memberDomain.Member
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ?", memberID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MemberRepository) UpdateStatus(ctx context.Context, memberID string, status memberDomain.Status) error {
	res := r.db.WithContext(ctx).
		Model(&memberDomain.Member{}).
		Where("member_id = ?", memberID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
