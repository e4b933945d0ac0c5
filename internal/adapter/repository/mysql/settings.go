package mysql

import (
	"context"

	settingsDomain "coop-loans/internal/domain/settings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository struct{ db *gorm.DB }

func NewSettingsRepository(db *gorm.DB) *SettingsRepository { return &SettingsRepository{db: db} }

func (r *SettingsRepository) List(ctx context.Context) ([]settingsDomain.Setting, error) {
	var out []settingsDomain.Setting
	err := r.db.WithContext(ctx).Order("config_key ASC").Find(&out).Error
	return out, err
}

func (r *SettingsRepository) Upsert(ctx context.Context, s *settingsDomain.Setting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "config_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"config_value", "updated_by", "updated_at"}),
		}).
		Create(s).Error
}
