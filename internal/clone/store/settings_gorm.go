package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/knowledge-clone/pkg/options/settings"
)

// SettingRecord 设置表的一行。
type SettingRecord struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName 返回表名。
func (SettingRecord) TableName() string {
	return "clone_settings"
}

// DBSettings 基于 gorm 的持久化设置存储。
type DBSettings struct {
	db *gorm.DB
}

var _ SettingsStore = (*DBSettings)(nil)

// NewDBSettings 创建设置存储并迁移表结构。
func NewDBSettings(ctx context.Context, db *gorm.DB) (*DBSettings, error) {
	if err := db.WithContext(ctx).AutoMigrate(&SettingRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate settings table: %w", err)
	}
	return &DBSettings{db: db}, nil
}

func (s *DBSettings) Name() string { return settings.BackendDatabase }

func (s *DBSettings) Get(ctx context.Context, key string) (string, bool, error) {
	var rec SettingRecord
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).Take(&rec).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return rec.Value, true, nil
}

var upsertSetting = clause.OnConflict{
	Columns:   []clause.Column{{Name: "key"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
}

func (s *DBSettings) Set(ctx context.Context, key, value string) error {
	rec := SettingRecord{Key: key, Value: value}
	if err := s.db.WithContext(ctx).Clauses(upsertSetting).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// SetMany 在一个事务内逐键写入。
func (s *DBSettings) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(values))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			rec := SettingRecord{Key: key, Value: values[key]}
			if err := tx.Clauses(upsertSetting).Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to write setting %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *DBSettings) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&SettingRecord{Key: key}).Error; err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

