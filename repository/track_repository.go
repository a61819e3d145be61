package repository

import (
	"context"

	"AutoDjFM/model"

	"gorm.io/gorm"
)

// TrackRepository 曲库数据访问接口
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id int64) (*model.Track, error)
	GetByVideoID(ctx context.Context, videoID string) (*model.Track, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Track, error)
	SoftDelete(ctx context.Context, id int64, userID int64) error
}

// gormTrackRepository GORM 实现
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository 创建 GORM 曲库仓库
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// Create 入库新曲目
func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	return r.db.WithContext(ctx).Create(track).Error
}

// GetByID 根据ID获取曲目
func (r *gormTrackRepository) GetByID(ctx context.Context, id int64) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Where("id = ? AND state = 1", id).
		First(&track).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &track, nil
}

// GetByVideoID 根据内容标识获取曲目
func (r *gormTrackRepository) GetByVideoID(ctx context.Context, videoID string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Where("video_id = ? AND state = 1", videoID).
		First(&track).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &track, nil
}

// ListByUser 返回用户曲库中的全部曲目
func (r *gormTrackRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND state = 1", userID).
		Order("created_at DESC").
		Find(&tracks).Error
	return tracks, err
}

// SoftDelete 软删除曲目
func (r *gormTrackRepository) SoftDelete(ctx context.Context, id int64, userID int64) error {
	return r.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("state", 0).Error
}
