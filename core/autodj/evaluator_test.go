package autodj

import (
	"testing"

	"AutoDjFM/model"
)

func sampleTxn(state TransactionState) *Transaction {
	return &Transaction{
		ID:         "txn-1",
		State:      state,
		TargetDeck: model.DeckB,
		SourceDeck: model.DeckA,
		QueueItem: model.QueueItem{
			ID:      "q-1",
			VideoID: "track-abc",
			Title:   "Sample Track",
		},
		StartedAt: 1_000_000,
	}
}

func readySnapshot(videoID string) model.DeckSnapshot {
	return model.DeckSnapshot{IsReady: true, Playing: false, VideoID: videoID}
}

func TestShouldAdvanceToReady(t *testing.T) {
	tests := []struct {
		name     string
		txn      *Transaction
		deckID   string
		snapshot model.DeckSnapshot
		want     bool
	}{
		{
			name:     "nil transaction never advances",
			txn:      nil,
			deckID:   model.DeckB,
			snapshot: readySnapshot("track-abc"),
			want:     false,
		},
		{
			name:     "all conditions met",
			txn:      sampleTxn(StatePreloading),
			deckID:   model.DeckB,
			snapshot: readySnapshot("track-abc"),
			want:     true,
		},
		{
			name:     "empty video id is permitted",
			txn:      sampleTxn(StatePreloading),
			deckID:   model.DeckB,
			snapshot: readySnapshot(""),
			want:     true,
		},
		{
			name:     "mismatched video id blocks stale advance",
			txn:      sampleTxn(StatePreloading),
			deckID:   model.DeckB,
			snapshot: readySnapshot("manual-track-xyz"),
			want:     false,
		},
		{
			name:     "wrong deck",
			txn:      sampleTxn(StatePreloading),
			deckID:   model.DeckA,
			snapshot: readySnapshot("track-abc"),
			want:     false,
		},
		{
			name:     "deck not ready",
			txn:      sampleTxn(StatePreloading),
			deckID:   model.DeckB,
			snapshot: model.DeckSnapshot{IsReady: false, Playing: false, VideoID: "track-abc"},
			want:     false,
		},
		{
			name:     "deck already playing",
			txn:      sampleTxn(StatePreloading),
			deckID:   model.DeckB,
			snapshot: model.DeckSnapshot{IsReady: true, Playing: true, VideoID: "track-abc"},
			want:     false,
		},
		{
			name:     "state ready does not re-advance",
			txn:      sampleTxn(StateReady),
			deckID:   model.DeckB,
			snapshot: readySnapshot("track-abc"),
			want:     false,
		},
		{
			name:     "state playing does not advance",
			txn:      sampleTxn(StatePlaying),
			deckID:   model.DeckB,
			snapshot: readySnapshot("track-abc"),
			want:     false,
		},
		{
			name:     "state mixing does not advance",
			txn:      sampleTxn(StateMixing),
			deckID:   model.DeckB,
			snapshot: readySnapshot("track-abc"),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAdvanceToReady(tt.txn, tt.deckID, tt.snapshot); got != tt.want {
				t.Fatalf("ShouldAdvanceToReady() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldCancelOnQueueChange(t *testing.T) {
	tests := []struct {
		name    string
		txn     *Transaction
		frontID string
		want    bool
	}{
		{name: "nil transaction", txn: nil, frontID: "q-2", want: false},
		{name: "preloading same front", txn: sampleTxn(StatePreloading), frontID: "q-1", want: false},
		{name: "preloading different front", txn: sampleTxn(StatePreloading), frontID: "q-2", want: true},
		{name: "preloading queue emptied", txn: sampleTxn(StatePreloading), frontID: "", want: true},
		{name: "ready different front", txn: sampleTxn(StateReady), frontID: "q-2", want: true},
		{name: "ready queue emptied", txn: sampleTxn(StateReady), frontID: "", want: true},
		{name: "playing ignores queue change", txn: sampleTxn(StatePlaying), frontID: "q-2", want: false},
		{name: "playing ignores emptied queue", txn: sampleTxn(StatePlaying), frontID: "", want: false},
		{name: "mixing ignores queue change", txn: sampleTxn(StateMixing), frontID: "q-2", want: false},
		{name: "mixing ignores emptied queue", txn: sampleTxn(StateMixing), frontID: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldCancelOnQueueChange(tt.txn, tt.frontID); got != tt.want {
				t.Fatalf("ShouldCancelOnQueueChange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransactionTimedOut(t *testing.T) {
	const timeout = int64(60_000)

	tests := []struct {
		name  string
		txn   *Transaction
		nowMs int64
		want  bool
	}{
		{name: "nil transaction", txn: nil, nowMs: 10_000_000, want: false},
		{name: "preloading before deadline", txn: sampleTxn(StatePreloading), nowMs: 1_000_000 + timeout - 1, want: false},
		{name: "preloading exactly at deadline", txn: sampleTxn(StatePreloading), nowMs: 1_000_000 + timeout, want: true},
		{name: "preloading past deadline", txn: sampleTxn(StatePreloading), nowMs: 1_000_000 + timeout + 1, want: true},
		{name: "ready past deadline", txn: sampleTxn(StateReady), nowMs: 1_000_000 + 2*timeout, want: true},
		{name: "playing exempt", txn: sampleTxn(StatePlaying), nowMs: 1_000_000 + 100*timeout, want: false},
		{name: "mixing exempt even at extreme elapsed", txn: sampleTxn(StateMixing), nowMs: 1_000_000 + 1_000_000*timeout, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransactionTimedOut(tt.txn, timeout, tt.nowMs); got != tt.want {
				t.Fatalf("TransactionTimedOut() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestTransactionTimedOutMonotonic 固定 StartedAt 和超时时长，
// 结果随 nowMs 单调：越过截止点后不会再翻回 false
func TestTransactionTimedOutMonotonic(t *testing.T) {
	txn := sampleTxn(StateReady)
	const timeout = int64(5_000)
	deadline := txn.StartedAt + timeout

	fired := false
	for nowMs := txn.StartedAt; nowMs <= deadline+timeout; nowMs += 250 {
		got := TransactionTimedOut(txn, timeout, nowMs)
		if fired && !got {
			t.Fatalf("timeout flipped back to false at nowMs=%d", nowMs)
		}
		if got != (nowMs >= deadline) {
			t.Fatalf("TransactionTimedOut at nowMs=%d = %v, want %v", nowMs, got, nowMs >= deadline)
		}
		if got {
			fired = true
		}
	}
	if !fired {
		t.Fatal("timeout never fired")
	}
}

func TestShouldCancelOnManualLoad(t *testing.T) {
	tests := []struct {
		name   string
		txn    *Transaction
		deckID string
		want   bool
	}{
		{name: "nil transaction", txn: nil, deckID: model.DeckB, want: false},
		{name: "preloading target deck", txn: sampleTxn(StatePreloading), deckID: model.DeckB, want: true},
		{name: "ready target deck", txn: sampleTxn(StateReady), deckID: model.DeckB, want: true},
		{name: "playing target deck", txn: sampleTxn(StatePlaying), deckID: model.DeckB, want: true},
		{name: "mixing never cancels", txn: sampleTxn(StateMixing), deckID: model.DeckB, want: false},
		{name: "preloading unrelated deck", txn: sampleTxn(StatePreloading), deckID: model.DeckA, want: false},
		{name: "playing unrelated deck", txn: sampleTxn(StatePlaying), deckID: model.DeckA, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldCancelOnManualLoad(tt.txn, tt.deckID); got != tt.want {
				t.Fatalf("ShouldCancelOnManualLoad() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestHandoffLifecycle 完整走一遍自动切歌生命周期的各个守卫
func TestHandoffLifecycle(t *testing.T) {
	txn := NewTransaction(model.DeckB, model.DeckA, model.QueueItem{
		ID:      "q-front",
		VideoID: "track-abc",
	})
	if txn.State != StatePreloading {
		t.Fatalf("new transaction state = %s, want %s", txn.State, StatePreloading)
	}
	if txn.TargetDeck == txn.SourceDeck {
		t.Fatal("target and source deck must differ")
	}
	if txn.ID == "" {
		t.Fatal("transaction id must be populated")
	}

	// 预加载期间用户手动加载了别的曲目：deck 就绪但内容不符，不得推进
	if ShouldAdvanceToReady(txn, model.DeckB, readySnapshot("manual-track-xyz")) {
		t.Fatal("stale advance must be blocked when deck holds a different video")
	}

	// 正确内容就绪，推进到 ready
	if !ShouldAdvanceToReady(txn, model.DeckB, model.DeckSnapshot{IsReady: true, Playing: false, VideoID: "track-abc"}) {
		t.Fatal("advance should be allowed once the expected video is ready")
	}
	txn.State = StateReady

	// 宿主观测到播放开始
	txn.State = StatePlaying
	if ShouldCancelOnQueueChange(txn, "q-different") {
		t.Fatal("queue change must not cancel once playback has started")
	}

	// 宿主观测到交叉淡入淡出开始
	txn.State = StateMixing
	nowMs := txn.StartedAt + 120_000
	if TransactionTimedOut(txn, 60_000, nowMs) {
		t.Fatal("mixing transaction must never time out")
	}
	if ShouldCancelOnManualLoad(txn, model.DeckB) {
		t.Fatal("manual load must not abort an in-progress mix")
	}
}
