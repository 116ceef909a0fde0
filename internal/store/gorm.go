package store

import (
	"context"
	"fmt"
	"time"

	"strategist/internal/model"

	"gorm.io/gorm"
)

// GormLedger keeps consultations in a gorm-managed table (MySQL in
// production).
type GormLedger struct{ db *gorm.DB }

func NewGorm(db *gorm.DB) (*GormLedger, error) {
	if err := db.AutoMigrate(&model.Consultation{}); err != nil {
		return nil, fmt.Errorf("migrate consultations: %w", err)
	}
	return &GormLedger{db: db}, nil
}

func (l *GormLedger) Record(ctx context.Context, c *model.Consultation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if err := l.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

func (l *GormLedger) Recent(ctx context.Context, limit int) ([]model.Consultation, error) {
	var out []model.Consultation
	err := l.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	return out, nil
}

func (l *GormLedger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
