package autodj

import (
	"context"
	"testing"

	"AutoDjFM/model"
)

type fakeQueue struct {
	items []model.QueueItem
}

func (q *fakeQueue) Front(ctx context.Context, userID int64) (*model.QueueItem, error) {
	if len(q.items) == 0 {
		return nil, nil
	}
	item := q.items[0]
	return &item, nil
}

func (q *fakeQueue) PopFront(ctx context.Context, userID int64) error {
	if len(q.items) > 0 {
		q.items = q.items[1:]
	}
	return nil
}

type fakeRecorder struct {
	sessions []*model.MixSession
}

func (r *fakeRecorder) Record(ctx context.Context, s *model.MixSession) error {
	r.sessions = append(r.sessions, s)
	return nil
}

type fakeDecks struct {
	snapshots map[string]model.DeckSnapshot
}

func (d *fakeDecks) Snapshot(deckID string) (model.DeckSnapshot, bool) {
	snap, ok := d.snapshots[deckID]
	return snap, ok
}

type fakeSink struct {
	directives []Directive
}

func (s *fakeSink) SendDirective(userID int64, d Directive) {
	s.directives = append(s.directives, d)
}

func (s *fakeSink) last(t *testing.T) Directive {
	t.Helper()
	if len(s.directives) == 0 {
		t.Fatal("no directive sent")
	}
	return s.directives[len(s.directives)-1]
}

type conductorFixture struct {
	c        *Conductor
	queue    *fakeQueue
	recorder *fakeRecorder
	decks    *fakeDecks
	sink     *fakeSink
	nowMs    int64
}

func newFixture(items ...model.QueueItem) *conductorFixture {
	f := &conductorFixture{
		queue:    &fakeQueue{items: items},
		recorder: &fakeRecorder{},
		decks: &fakeDecks{snapshots: map[string]model.DeckSnapshot{
			model.DeckA: {IsReady: true, Playing: true, VideoID: "now-playing"},
			model.DeckB: {},
		}},
		sink:  &fakeSink{},
		nowMs: 1_000_000,
	}
	f.c = NewConductor(7, f.queue, f.recorder, f.decks, f.sink, nil, Options{TimeoutMs: 30_000})
	f.c.now = func() int64 { return f.nowMs }
	return f
}

// enable 启用并触发第一次事务创建（同步调用处理函数，绕过 Run 循环）
func (f *conductorFixture) enable(t *testing.T) {
	t.Helper()
	f.c.handleCommand(context.Background(), true)
}

func TestConductorStartsHandoffFromQueueFront(t *testing.T) {
	f := newFixture(model.QueueItem{ID: "q-1", VideoID: "track-abc", Title: "First"})
	f.enable(t)

	_, txn := f.c.Status()
	if txn == nil {
		t.Fatal("expected an active transaction after enabling")
	}
	if txn.State != StatePreloading {
		t.Fatalf("state = %s, want %s", txn.State, StatePreloading)
	}
	if txn.TargetDeck != model.DeckB || txn.SourceDeck != model.DeckA {
		t.Fatalf("decks = %s<-%s, want B<-A while A is playing", txn.TargetDeck, txn.SourceDeck)
	}

	d := f.sink.last(t)
	if d.Action != DirectivePreload || d.DeckID != model.DeckB {
		t.Fatalf("directive = %+v, want preload on deck B", d)
	}
	if d.Item == nil || d.Item.VideoID != "track-abc" {
		t.Fatalf("preload directive must carry the queue item, got %+v", d.Item)
	}
}

func TestConductorFullHandoffLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		model.QueueItem{ID: "q-1", VideoID: "track-abc"},
		model.QueueItem{ID: "q-2", VideoID: "track-def"},
	)
	f.enable(t)

	// 错误内容就绪：不推进
	f.c.handleDeckReport(ctx, model.DeckReport{
		DeckID:   model.DeckB,
		Snapshot: model.DeckSnapshot{IsReady: true, VideoID: "manual-track-xyz"},
	})
	if _, txn := f.c.Status(); txn.State != StatePreloading {
		t.Fatalf("stale ready report advanced state to %s", txn.State)
	}

	// 期望内容就绪：preloading -> ready，并下发 play
	f.c.handleDeckReport(ctx, model.DeckReport{
		DeckID:   model.DeckB,
		Snapshot: model.DeckSnapshot{IsReady: true, VideoID: "track-abc"},
	})
	if _, txn := f.c.Status(); txn.State != StateReady {
		t.Fatalf("state = %s, want %s", txn.State, StateReady)
	}
	if d := f.sink.last(t); d.Action != DirectivePlay {
		t.Fatalf("directive = %s, want %s", d.Action, DirectivePlay)
	}

	// 播放开始：ready -> playing，并下发 begin_mix
	f.c.handlePlayback(ctx, PlaybackEvent{Type: EventPlayStarted, DeckID: model.DeckB})
	if _, txn := f.c.Status(); txn.State != StatePlaying {
		t.Fatalf("state = %s, want %s", txn.State, StatePlaying)
	}
	if d := f.sink.last(t); d.Action != DirectiveBeginMix {
		t.Fatalf("directive = %s, want %s", d.Action, DirectiveBeginMix)
	}

	// playing 状态下队首变化不取消
	f.c.handleQueueChange(ctx, "q-other")
	if _, txn := f.c.Status(); txn == nil || txn.State != StatePlaying {
		t.Fatal("queue change must not cancel a playing transaction")
	}

	// 混音开始 -> mixing，超时不生效
	f.c.handlePlayback(ctx, PlaybackEvent{Type: EventMixStarted, DeckID: model.DeckB})
	f.nowMs += 120_000
	f.c.handleTick(ctx)
	if _, txn := f.c.Status(); txn == nil || txn.State != StateMixing {
		t.Fatal("mixing transaction must survive the timeout tick")
	}

	// 混音结束：记录 completed、弹出队首、立刻开始下一次切歌
	f.c.handlePlayback(ctx, PlaybackEvent{Type: EventMixFinished, DeckID: model.DeckB})
	if len(f.recorder.sessions) != 1 || f.recorder.sessions[0].Outcome != model.OutcomeCompleted {
		t.Fatalf("sessions = %+v, want one completed record", f.recorder.sessions)
	}
	if len(f.queue.items) != 1 || f.queue.items[0].ID != "q-2" {
		t.Fatalf("queue = %+v, want q-1 popped", f.queue.items)
	}
	_, txn := f.c.Status()
	if txn == nil || txn.QueueItem.ID != "q-2" || txn.State != StatePreloading {
		t.Fatalf("next handoff not started, txn = %+v", txn)
	}
}

func TestConductorCancelsOnQueueChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(model.QueueItem{ID: "q-1", VideoID: "track-abc"})
	f.enable(t)

	f.queue.items = []model.QueueItem{{ID: "q-9", VideoID: "track-zzz"}}
	f.c.handleQueueChange(ctx, "q-9")

	if len(f.recorder.sessions) != 1 || f.recorder.sessions[0].Outcome != model.OutcomeCancelledQueue {
		t.Fatalf("sessions = %+v, want one cancelled_queue record", f.recorder.sessions)
	}
	// 取消后立刻对新队首开启新事务
	_, txn := f.c.Status()
	if txn == nil || txn.QueueItem.ID != "q-9" {
		t.Fatalf("expected a fresh transaction for q-9, got %+v", txn)
	}
}

func TestConductorCancelsOnManualLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(model.QueueItem{ID: "q-1", VideoID: "track-abc"})
	f.enable(t)

	// 无关 deck 不取消
	f.c.handleManualLoad(ctx, model.DeckA)
	if _, txn := f.c.Status(); txn == nil {
		t.Fatal("manual load on the source deck must not cancel")
	}

	f.c.handleManualLoad(ctx, model.DeckB)
	if _, txn := f.c.Status(); txn != nil {
		t.Fatal("manual load on the target deck must cancel the transaction")
	}
	if f.recorder.sessions[len(f.recorder.sessions)-1].Outcome != model.OutcomeCancelledManual {
		t.Fatal("outcome must be cancelled_manual")
	}
	if d := f.sink.last(t); d.Action != DirectiveCancel {
		t.Fatalf("directive = %s, want %s", d.Action, DirectiveCancel)
	}
}

func TestConductorTimeoutRetriesOnceThenSkips(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		model.QueueItem{ID: "q-1", VideoID: "track-abc"},
		model.QueueItem{ID: "q-2", VideoID: "track-def"},
	)
	f.enable(t)

	// 第一次超时：取消并对同一队首重试
	f.nowMs += 30_000
	f.c.handleTick(ctx)
	if f.recorder.sessions[0].Outcome != model.OutcomeTimeout {
		t.Fatalf("outcome = %s, want timeout", f.recorder.sessions[0].Outcome)
	}
	_, txn := f.c.Status()
	if txn == nil || txn.QueueItem.ID != "q-1" {
		t.Fatalf("first timeout should retry the same front, txn = %+v", txn)
	}

	// 第二次超时：跳过该曲目，换下一首
	f.nowMs += 30_000
	f.c.handleTick(ctx)
	_, txn = f.c.Status()
	if txn == nil || txn.QueueItem.ID != "q-2" {
		t.Fatalf("second timeout should skip to the next item, txn = %+v", txn)
	}
	if len(f.queue.items) != 1 || f.queue.items[0].ID != "q-2" {
		t.Fatalf("queue = %+v, want q-1 skipped", f.queue.items)
	}
}

func TestConductorDisableCancelsActiveTransaction(t *testing.T) {
	f := newFixture(model.QueueItem{ID: "q-1", VideoID: "track-abc"})
	f.enable(t)

	f.c.handleCommand(context.Background(), false)
	enabled, txn := f.c.Status()
	if enabled || txn != nil {
		t.Fatalf("disable should cancel and clear, enabled=%v txn=%+v", enabled, txn)
	}
}

func TestConductorIdleWithEmptyQueue(t *testing.T) {
	f := newFixture()
	f.enable(t)
	if _, txn := f.c.Status(); txn != nil {
		t.Fatalf("no transaction expected with an empty queue, got %+v", txn)
	}
	if len(f.sink.directives) != 0 {
		t.Fatalf("no directive expected, got %+v", f.sink.directives)
	}
}
