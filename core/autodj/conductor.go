package autodj

import (
	"context"
	"sync"
	"time"

	"AutoDjFM/logger"
	"AutoDjFM/model"
)

// PlaybackEventType 控制台上报的播放事件类型
type PlaybackEventType string

const (
	EventPlayStarted PlaybackEventType = "play_started" // 目标 deck 开始播放
	EventMixStarted  PlaybackEventType = "mix_started"  // 交叉淡入淡出开始
	EventMixFinished PlaybackEventType = "mix_finished" // 交叉淡入淡出结束
)

// PlaybackEvent 控制台上报的播放事件
type PlaybackEvent struct {
	Type   PlaybackEventType `json:"type"`
	DeckID string            `json:"deckId"`
}

// DirectiveAction 下发给控制台的指令
type DirectiveAction string

const (
	DirectivePreload  DirectiveAction = "preload"   // 把队首曲目预加载到目标 deck
	DirectivePlay     DirectiveAction = "play"      // 目标 deck 开始播放并准备混音
	DirectiveBeginMix DirectiveAction = "begin_mix" // 开始交叉淡入淡出
	DirectiveCancel   DirectiveAction = "cancel"    // 放弃本次切歌，卸载目标 deck
)

// Directive conductor 下发给浏览器控制台的指令
type Directive struct {
	Action        DirectiveAction  `json:"action"`
	DeckID        string           `json:"deckId"`
	TransactionID string           `json:"transactionId"`
	Item          *model.QueueItem `json:"item,omitempty"`
	Timestamp     int64            `json:"timestamp"`
}

// QueueSource 队列子系统需要提供的能力
type QueueSource interface {
	// Front 返回当前队首条目，队列为空时返回 nil
	Front(ctx context.Context, userID int64) (*model.QueueItem, error)
	// PopFront 移除队首条目
	PopFront(ctx context.Context, userID int64) error
}

// SessionRecorder 记录已结束的切歌事务
type SessionRecorder interface {
	Record(ctx context.Context, session *model.MixSession) error
}

// DeckStates deck 子系统按需提供的状态快照
type DeckStates interface {
	Snapshot(deckID string) (model.DeckSnapshot, bool)
}

// DirectiveSink 指令的去向（WebSocket hub）
type DirectiveSink interface {
	SendDirective(userID int64, d Directive)
}

// StateMirror 把活动事务镜像到外部存储，供控制台重连后恢复
type StateMirror interface {
	SaveTransaction(ctx context.Context, userID int64, txn *Transaction) error
	ClearTransaction(ctx context.Context, userID int64) error
}

// Options conductor 的时间参数
type Options struct {
	TimeoutMs    int64         // 事务在 preloading/ready 停留的最长毫秒数
	TickInterval time.Duration // 超时检查周期
}

// Conductor 单用户的自动切歌控制循环
//
// 所有状态迁移串行通过 Run 中的单个 goroutine：每个外部事件
//（deck 上报、播放事件、队列变化、手动加载、定时 tick）调用对应的
// evaluator 函数，并在处理下一个事件前原子地应用其决策。
// 全局最多只有一个活动事务，由这里持有并负责创建与销毁。
type Conductor struct {
	userID   int64
	queue    QueueSource
	sessions SessionRecorder
	decks    DeckStates
	sink     DirectiveSink
	mirror   StateMirror
	opts     Options
	now      func() int64 // 毫秒时钟，测试时可替换

	mu      sync.Mutex
	enabled bool
	txn     *Transaction
	retried map[string]bool // 队列条目ID -> 超时后是否已重试过一次

	deckReports    chan model.DeckReport
	playbackEvents chan PlaybackEvent
	queueChanges   chan string
	manualLoads    chan string
	commands       chan bool // true=启用 false=停用
	done           chan struct{}
}

// NewConductor 创建自动切歌控制循环
func NewConductor(userID int64, queue QueueSource, sessions SessionRecorder, decks DeckStates, sink DirectiveSink, mirror StateMirror, opts Options) *Conductor {
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = 30_000
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &Conductor{
		userID:         userID,
		queue:          queue,
		sessions:       sessions,
		decks:          decks,
		sink:           sink,
		mirror:         mirror,
		opts:           opts,
		now:            func() int64 { return time.Now().UnixMilli() },
		retried:        make(map[string]bool),
		deckReports:    make(chan model.DeckReport, 16),
		playbackEvents: make(chan PlaybackEvent, 16),
		queueChanges:   make(chan string, 16),
		manualLoads:    make(chan string, 16),
		commands:       make(chan bool, 4),
		done:           make(chan struct{}),
	}
}

// Run 启动控制循环，阻塞直到 ctx 结束
func (c *Conductor) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case enable := <-c.commands:
			c.handleCommand(ctx, enable)
		case report := <-c.deckReports:
			c.handleDeckReport(ctx, report)
		case ev := <-c.playbackEvents:
			c.handlePlayback(ctx, ev)
		case frontID := <-c.queueChanges:
			c.handleQueueChange(ctx, frontID)
		case deckID := <-c.manualLoads:
			c.handleManualLoad(ctx, deckID)
		case <-ticker.C:
			c.handleTick(ctx)
		}
	}
}

// ========== 事件投递（非阻塞，满则丢弃并告警） ==========

// Enable 启用自动切歌
func (c *Conductor) Enable() {
	select {
	case c.commands <- true:
	case <-c.done:
	}
}

// Disable 停用自动切歌并取消当前事务
func (c *Conductor) Disable() {
	select {
	case c.commands <- false:
	case <-c.done:
	}
}

// ReportDeck 投递 deck 状态上报
func (c *Conductor) ReportDeck(report model.DeckReport) {
	select {
	case c.deckReports <- report:
	case <-c.done:
	default:
		c.dropped("deck_report")
	}
}

// ReportPlayback 投递播放事件
func (c *Conductor) ReportPlayback(ev PlaybackEvent) {
	select {
	case c.playbackEvents <- ev:
	case <-c.done:
	default:
		c.dropped("playback_event")
	}
}

// NotifyQueueChanged 投递队首变化，frontID 为空表示队列已清空
func (c *Conductor) NotifyQueueChanged(frontID string) {
	select {
	case c.queueChanges <- frontID:
	case <-c.done:
	default:
		c.dropped("queue_change")
	}
}

// NotifyManualLoad 投递用户手动加载事件
func (c *Conductor) NotifyManualLoad(deckID string) {
	select {
	case c.manualLoads <- deckID:
	case <-c.done:
	default:
		c.dropped("manual_load")
	}
}

func (c *Conductor) dropped(kind string) {
	logger.Warn("conductor事件队列已满，事件被丢弃",
		logger.Int64("userId", c.userID),
		logger.String("event", kind))
}

// Status 返回当前是否启用以及活动事务的副本
func (c *Conductor) Status() (bool, *Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn == nil {
		return c.enabled, nil
	}
	txn := *c.txn
	return c.enabled, &txn
}

// ========== 事件处理（仅在 Run goroutine 中调用） ==========

func (c *Conductor) handleCommand(ctx context.Context, enable bool) {
	c.mu.Lock()
	c.enabled = enable
	c.mu.Unlock()

	if !enable {
		if c.txn != nil {
			c.cancel(ctx, model.OutcomeCancelledManual)
		}
		logger.Info("自动切歌已停用", logger.Int64("userId", c.userID))
		return
	}
	logger.Info("自动切歌已启用", logger.Int64("userId", c.userID))
	c.maybeStartHandoff(ctx)
}

func (c *Conductor) handleDeckReport(ctx context.Context, report model.DeckReport) {
	if ShouldAdvanceToReady(c.txn, report.DeckID, report.Snapshot) {
		c.setState(ctx, StateReady)
		c.send(Directive{
			Action:        DirectivePlay,
			DeckID:        c.txn.TargetDeck,
			TransactionID: c.txn.ID,
			Item:          &c.txn.QueueItem,
		})
		logger.Info("事务进入ready",
			logger.Int64("userId", c.userID),
			logger.String("txnId", c.txn.ID),
			logger.String("deck", c.txn.TargetDeck))
	}
}

func (c *Conductor) handlePlayback(ctx context.Context, ev PlaybackEvent) {
	if c.txn == nil {
		return
	}
	switch ev.Type {
	case EventPlayStarted:
		if c.txn.State == StateReady && ev.DeckID == c.txn.TargetDeck {
			c.setState(ctx, StatePlaying)
			c.send(Directive{
				Action:        DirectiveBeginMix,
				DeckID:        c.txn.SourceDeck,
				TransactionID: c.txn.ID,
			})
		}
	case EventMixStarted:
		if c.txn.State == StatePlaying {
			c.setState(ctx, StateMixing)
		}
	case EventMixFinished:
		if c.txn.State == StateMixing {
			c.complete(ctx)
		}
	}
}

func (c *Conductor) handleQueueChange(ctx context.Context, frontID string) {
	if ShouldCancelOnQueueChange(c.txn, frontID) {
		logger.Info("队首变化，取消事务",
			logger.Int64("userId", c.userID),
			logger.String("txnId", c.txn.ID),
			logger.String("newFront", frontID))
		c.cancel(ctx, model.OutcomeCancelledQueue)
	}
	c.maybeStartHandoff(ctx)
}

func (c *Conductor) handleManualLoad(ctx context.Context, deckID string) {
	if ShouldCancelOnManualLoad(c.txn, deckID) {
		logger.Info("手动加载目标deck，取消事务",
			logger.Int64("userId", c.userID),
			logger.String("txnId", c.txn.ID),
			logger.String("deck", deckID))
		c.cancel(ctx, model.OutcomeCancelledManual)
	}
}

func (c *Conductor) handleTick(ctx context.Context) {
	if !TransactionTimedOut(c.txn, c.opts.TimeoutMs, c.now()) {
		return
	}
	item := c.txn.QueueItem
	logger.Warn("事务超时",
		logger.Int64("userId", c.userID),
		logger.String("txnId", c.txn.ID),
		logger.String("queueItem", item.ID))
	c.cancel(ctx, model.OutcomeTimeout)

	// 同一队首只重试一次，再次超时则跳过，避免死曲目卡住队列
	if c.retried[item.ID] {
		delete(c.retried, item.ID)
		if err := c.queue.PopFront(ctx, c.userID); err != nil {
			logger.Error("跳过超时曲目失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
		}
	} else {
		c.retried[item.ID] = true
	}
	c.maybeStartHandoff(ctx)
}

// ========== 事务生命周期 ==========

// maybeStartHandoff 在启用且无活动事务时，从队首创建新事务
func (c *Conductor) maybeStartHandoff(ctx context.Context) {
	c.mu.Lock()
	enabled, active := c.enabled, c.txn != nil
	c.mu.Unlock()
	if !enabled || active {
		return
	}

	front, err := c.queue.Front(ctx, c.userID)
	if err != nil {
		logger.Error("获取队首失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
		return
	}
	if front == nil {
		return
	}

	target, source := c.pickDecks()
	txn := NewTransaction(target, source, *front)
	txn.StartedAt = c.now()

	c.mu.Lock()
	c.txn = txn
	c.mu.Unlock()
	c.mirrorState(ctx)

	c.send(Directive{
		Action:        DirectivePreload,
		DeckID:        target,
		TransactionID: txn.ID,
		Item:          &txn.QueueItem,
	})
	logger.Info("创建切歌事务",
		logger.Int64("userId", c.userID),
		logger.String("txnId", txn.ID),
		logger.String("target", target),
		logger.String("source", source),
		logger.String("videoId", front.VideoID))
}

// pickDecks 正在播放的 deck 作为 source，另一个作为 target
func (c *Conductor) pickDecks() (target, source string) {
	if snap, ok := c.decks.Snapshot(model.DeckA); ok && snap.Playing {
		return model.DeckB, model.DeckA
	}
	return model.DeckA, model.DeckB
}

func (c *Conductor) setState(ctx context.Context, state TransactionState) {
	c.mu.Lock()
	c.txn.State = state
	c.mu.Unlock()
	c.mirrorState(ctx)
}

// complete 混音完成：记录历史，弹出队首，销毁事务并尝试下一次切歌
func (c *Conductor) complete(ctx context.Context) {
	txn := c.txn
	c.record(ctx, txn, model.OutcomeCompleted)
	delete(c.retried, txn.QueueItem.ID)

	c.mu.Lock()
	c.txn = nil
	c.mu.Unlock()
	c.clearMirror(ctx)

	if err := c.queue.PopFront(ctx, c.userID); err != nil {
		logger.Error("弹出队首失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
	}
	logger.Info("切歌完成",
		logger.Int64("userId", c.userID),
		logger.String("txnId", txn.ID),
		logger.String("videoId", txn.QueueItem.VideoID))
	c.maybeStartHandoff(ctx)
}

// cancel 销毁当前事务并通知控制台卸载目标 deck
func (c *Conductor) cancel(ctx context.Context, outcome string) {
	txn := c.txn
	c.record(ctx, txn, outcome)

	c.mu.Lock()
	c.txn = nil
	c.mu.Unlock()
	c.clearMirror(ctx)

	c.send(Directive{
		Action:        DirectiveCancel,
		DeckID:        txn.TargetDeck,
		TransactionID: txn.ID,
	})
}

func (c *Conductor) record(ctx context.Context, txn *Transaction, outcome string) {
	session := &model.MixSession{
		UserID:        c.userID,
		TransactionID: txn.ID,
		SourceDeck:    txn.SourceDeck,
		TargetDeck:    txn.TargetDeck,
		QueueItemID:   txn.QueueItem.ID,
		VideoID:       txn.QueueItem.VideoID,
		Title:         txn.QueueItem.Title,
		Outcome:       outcome,
		StartedAt:     txn.StartedAt,
		EndedAt:       c.now(),
	}
	if err := c.sessions.Record(ctx, session); err != nil {
		logger.Warn("记录切歌历史失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
	}
}

func (c *Conductor) mirrorState(ctx context.Context) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.SaveTransaction(ctx, c.userID, c.txn); err != nil {
		logger.Warn("镜像事务状态失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
	}
}

func (c *Conductor) clearMirror(ctx context.Context) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.ClearTransaction(ctx, c.userID); err != nil {
		logger.Warn("清理事务镜像失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
	}
}

func (c *Conductor) send(d Directive) {
	if c.sink == nil {
		return
	}
	d.Timestamp = c.now()
	c.sink.SendDirective(c.userID, d)
}
