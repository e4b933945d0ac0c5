package settings

import "time"

// Table: business_config. One row per threshold key.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:config_key;size:64"`
	Value     string    `gorm:"column:config_value;size:255;not null"`
	UpdatedBy string    `gorm:"column:updated_by;size:32"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "business_config" }
