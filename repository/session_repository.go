package repository

import (
	"context"

	"AutoDjFM/model"

	"gorm.io/gorm"
)

// MixSessionRepository 切歌历史数据访问接口
type MixSessionRepository interface {
	Record(ctx context.Context, session *model.MixSession) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*model.MixSession, error)
	CountByOutcome(ctx context.Context, userID int64, outcome string) (int64, error)
}

// gormMixSessionRepository GORM 实现
type gormMixSessionRepository struct {
	db *gorm.DB
}

// NewGormMixSessionRepository 创建 GORM 切歌历史仓库
func NewGormMixSessionRepository(db *gorm.DB) MixSessionRepository {
	return &gormMixSessionRepository{db: db}
}

// Record 写入一条已结束的切歌事务记录
func (r *gormMixSessionRepository) Record(ctx context.Context, session *model.MixSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// ListByUser 按时间倒序返回用户的切歌历史
func (r *gormMixSessionRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*model.MixSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var sessions []*model.MixSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&sessions).Error
	return sessions, err
}

// CountByOutcome 统计指定结局的事务数量
func (r *gormMixSessionRepository) CountByOutcome(ctx context.Context, userID int64, outcome string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.MixSession{}).
		Where("user_id = ? AND outcome = ?", userID, outcome).
		Count(&count).Error
	return count, err
}
