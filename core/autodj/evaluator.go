package autodj

import (
	"AutoDjFM/model"
)

// 本文件是自动切歌的决策核心：四个纯函数，输入当前事务（可为 nil）
// 和外部观测到的事实，输出宿主必须执行的布尔决策。
// 函数本身不产生任何副作用，状态迁移和事务销毁全部由 conductor 执行。

// ShouldAdvanceToReady 判断事务是否可以从 preloading 进入 ready
//
// deckID 是上报状态变化的 deck，snapshot 是该 deck 当前的播放器快照。
// 只有目标 deck 就绪、未在播放、且加载的内容与事务期望一致时才允许推进。
// snapshot.VideoID 与事务期望不一致说明用户在预加载期间手动加载了别的
// 曲目，此时过期的事务绝不能推进。
// VideoID 为空视为播放器尚未填充，允许推进。
func ShouldAdvanceToReady(txn *Transaction, deckID string, snapshot model.DeckSnapshot) bool {
	if txn == nil {
		return false
	}
	if txn.State != StatePreloading {
		return false
	}
	if deckID != txn.TargetDeck {
		return false
	}
	if !snapshot.IsReady || snapshot.Playing {
		return false
	}
	if snapshot.VideoID != "" && snapshot.VideoID != txn.QueueItem.VideoID {
		return false
	}
	return true
}

// ShouldCancelOnQueueChange 判断队列变化是否应当取消事务
//
// newFrontID 是当前队首条目的 ID，队列为空时传空字符串。
// 只在 preloading 和 ready 两个状态下取消：一旦进入 playing 或 mixing，
// 宿主必须让切歌完成，中途放弃会造成可闻的断音。
func ShouldCancelOnQueueChange(txn *Transaction, newFrontID string) bool {
	if txn == nil {
		return false
	}
	if txn.State != StatePreloading && txn.State != StateReady {
		return false
	}
	return newFrontID != txn.QueueItem.ID
}

// TransactionTimedOut 判断事务是否超时
//
// nowMs 由调用方显式传入（conductor 传 time.Now().UnixMilli()），
// 保证超时逻辑可以确定性地测试。
// 超时只适用于 preloading 和 ready：一直停在 preloading 的事务
//（例如曲目加载失败）必须被这里兜住，宿主才能取消重试或跳过。
// playing 和 mixing 不受超时影响，打断进行中的淡入淡出比晚切更糟。
func TransactionTimedOut(txn *Transaction, timeoutMs, nowMs int64) bool {
	if txn == nil {
		return false
	}
	if txn.State != StatePreloading && txn.State != StateReady {
		return false
	}
	return nowMs-txn.StartedAt >= timeoutMs
}

// ShouldCancelOnManualLoad 判断用户手动加载是否应当取消事务
//
// deckID 是刚刚接收了用户手动（非自动）加载的 deck。
// 手动加载到目标 deck 会在 preloading、ready、playing 下取消事务；
// mixing 下淡入淡出已经开始，不再取消。
// 加载到与事务无关的 deck 不构成干扰。
func ShouldCancelOnManualLoad(txn *Transaction, deckID string) bool {
	if txn == nil {
		return false
	}
	if txn.State == StateMixing {
		return false
	}
	return deckID == txn.TargetDeck
}
