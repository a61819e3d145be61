package deck

import (
	"fmt"
	"sync"
	"time"

	"AutoDjFM/model"
)

// Manager 单个控制台的 deck 状态注册表
// 保存浏览器端上报的最新快照，conductor 按需读取
type Manager struct {
	mu        sync.RWMutex
	snapshots map[string]model.DeckSnapshot
}

// NewManager 创建注册表，所有 deck 以空快照初始化
func NewManager() *Manager {
	snapshots := make(map[string]model.DeckSnapshot, 2)
	for _, id := range model.DeckIDs() {
		snapshots[id] = model.DeckSnapshot{}
	}
	return &Manager{snapshots: snapshots}
}

// Apply 应用一次 deck 状态上报
func (m *Manager) Apply(report model.DeckReport) error {
	if !model.IsValidDeckID(report.DeckID) {
		return fmt.Errorf("unknown deck id: %s", report.DeckID)
	}

	snap := report.Snapshot
	if snap.UpdatedAt == 0 {
		snap.UpdatedAt = time.Now().UnixMilli()
	}

	m.mu.Lock()
	m.snapshots[report.DeckID] = snap
	m.mu.Unlock()
	return nil
}

// Snapshot 返回指定 deck 的最新快照
func (m *Manager) Snapshot(deckID string) (model.DeckSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[deckID]
	return snap, ok
}

// All 返回全部 deck 的快照副本
func (m *Manager) All() map[string]model.DeckSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.DeckSnapshot, len(m.snapshots))
	for id, snap := range m.snapshots {
		out[id] = snap
	}
	return out
}
