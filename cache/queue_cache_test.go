package cache

import (
	"context"
	"fmt"
	"testing"
)

func TestQueueKey(t *testing.T) {
	tests := []struct {
		userID int64
		want   string
	}{
		{1, "djqueue:1"},
		{42, "djqueue:42"},
		{900001, "djqueue:900001"},
	}
	for _, tt := range tests {
		if got := queueKey(tt.userID); got != tt.want {
			t.Errorf("queueKey(%d) = %q, want %q", tt.userID, got, tt.want)
		}
	}
}

func TestConsoleKeys(t *testing.T) {
	if got := fmt.Sprintf(deckStateKeyFormat, int64(7)); got != "console:7:decks" {
		t.Errorf("deck state key = %q, want console:7:decks", got)
	}
	if got := fmt.Sprintf(activeTxnKeyFormat, int64(7)); got != "console:7:txn" {
		t.Errorf("active txn key = %q, want console:7:txn", got)
	}
}

func TestQueueCacheNilClient(t *testing.T) {
	c := NewQueueCache(nil)
	ctx := context.Background()

	if _, err := c.List(ctx, 1); err == nil {
		t.Error("List with nil client should fail")
	}
	if err := c.Clear(ctx, 1); err == nil {
		t.Error("Clear with nil client should fail")
	}
	if err := c.Reorder(ctx, 1, []string{"q-a"}); err == nil {
		t.Error("Reorder with nil client should fail")
	}
}
