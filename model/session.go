package model

import "time"

// MixSession 一次自动切歌事务的最终记录
// 事务本身只存在于内存和 Redis 中，结束（完成或取消）后落库一行
type MixSession struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        int64     `json:"userId" gorm:"index;not null"`
	TransactionID string    `json:"transactionId" gorm:"size:36;index;not null"`
	SourceDeck    string    `json:"sourceDeck" gorm:"size:4;not null"`
	TargetDeck    string    `json:"targetDeck" gorm:"size:4;not null"`
	QueueItemID   string    `json:"queueItemId" gorm:"size:64;not null"`
	VideoID       string    `json:"videoId" gorm:"size:64;index"`
	Title         string    `json:"title" gorm:"size:255"`
	Outcome       string    `json:"outcome" gorm:"size:32;index;not null"` // completed, cancelled_queue, cancelled_manual, timeout
	StartedAt     int64     `json:"startedAt"`                             // 时间戳毫秒
	EndedAt       int64     `json:"endedAt"`                               // 时间戳毫秒
	CreatedAt     time.Time `json:"createdAt"`
}

// TableName 指定表名
func (MixSession) TableName() string {
	return "mix_sessions"
}

// 事务结局
const (
	OutcomeCompleted       = "completed"
	OutcomeCancelledQueue  = "cancelled_queue"
	OutcomeCancelledManual = "cancelled_manual"
	OutcomeTimeout         = "timeout"
)
