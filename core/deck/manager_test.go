package deck

import (
	"testing"

	"AutoDjFM/model"
)

func TestManagerApplyAndSnapshot(t *testing.T) {
	m := NewManager()

	// 初始状态：两个 deck 都有空快照
	for _, id := range model.DeckIDs() {
		snap, ok := m.Snapshot(id)
		if !ok {
			t.Fatalf("deck %s missing from a fresh manager", id)
		}
		if snap.IsReady || snap.Playing || snap.VideoID != "" {
			t.Fatalf("deck %s should start empty, got %+v", id, snap)
		}
	}

	err := m.Apply(model.DeckReport{
		DeckID:   model.DeckA,
		Snapshot: model.DeckSnapshot{IsReady: true, Playing: true, VideoID: "track-abc"},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	snap, _ := m.Snapshot(model.DeckA)
	if !snap.IsReady || !snap.Playing || snap.VideoID != "track-abc" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.UpdatedAt == 0 {
		t.Fatal("UpdatedAt should be stamped when the report omits it")
	}

	// 另一个 deck 不受影响
	snap, _ = m.Snapshot(model.DeckB)
	if snap.IsReady || snap.VideoID != "" {
		t.Fatalf("deck B should be untouched, got %+v", snap)
	}
}

func TestManagerRejectsUnknownDeck(t *testing.T) {
	m := NewManager()
	if err := m.Apply(model.DeckReport{DeckID: "C"}); err == nil {
		t.Fatal("expected an error for an unknown deck id")
	}
}

func TestManagerAllReturnsCopy(t *testing.T) {
	m := NewManager()
	all := m.All()
	if len(all) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(all))
	}
	all[model.DeckA] = model.DeckSnapshot{Playing: true}
	if snap, _ := m.Snapshot(model.DeckA); snap.Playing {
		t.Fatal("mutating the returned map must not affect the manager")
	}
}
