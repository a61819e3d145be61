package model

import "time"

// Track represents an audio track in the user's library.
type Track struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	VideoID   string    `json:"videoId" gorm:"size:64;uniqueIndex;not null"` // Stable content identifier reported back by decks
	Title     string    `json:"title" gorm:"size:255;not null"`
	Artist    string    `json:"artist" gorm:"size:255"`
	Album     string    `json:"album" gorm:"size:255"`
	ObjectKey string    `json:"-" gorm:"size:767"` // MinIO object key for the audio file, not exposed in API
	Duration  float32   `json:"duration"`          // Duration in seconds
	State     int8      `json:"state" gorm:"default:1"` // 0=soft deleted, 1=normal
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}
