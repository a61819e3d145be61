package autodj

import (
	"time"

	"github.com/google/uuid"

	"AutoDjFM/model"
)

// TransactionState 自动切歌事务的生命周期状态
type TransactionState string

const (
	StatePreloading TransactionState = "preloading" // 目标 deck 正在预加载队首曲目
	StateReady      TransactionState = "ready"      // 目标 deck 已就绪，等待开始播放
	StatePlaying    TransactionState = "playing"    // 目标 deck 已开始播放
	StateMixing     TransactionState = "mixing"     // 两个 deck 正在交叉淡入淡出
)

// Transaction 一次进行中的自动切歌事务
// 不存在显式的终态：事务被宿主销毁（置为 nil）即代表取消或完成
type Transaction struct {
	ID         string           `json:"id"`
	State      TransactionState `json:"state"`
	TargetDeck string           `json:"targetDeck"` // 接收新曲目的 deck
	SourceDeck string           `json:"sourceDeck"` // 当前正在播放的 deck
	QueueItem  model.QueueItem  `json:"queueItem"` // 事务存续期间不可变，队首变化产生取消决策而不是原地修改
	StartedAt  int64            `json:"startedAt"` // 时间戳毫秒
}

// NewTransaction 创建一个处于 preloading 状态的事务
// TargetDeck 与 SourceDeck 必须不同，由调用方（conductor）保证
func NewTransaction(targetDeck, sourceDeck string, item model.QueueItem) *Transaction {
	return &Transaction{
		ID:         uuid.NewString(),
		State:      StatePreloading,
		TargetDeck: targetDeck,
		SourceDeck: sourceDeck,
		QueueItem:  item,
		StartedAt:  time.Now().UnixMilli(),
	}
}
