package autodj

import (
	"context"
	"sync"

	"AutoDjFM/core/deck"
	"AutoDjFM/logger"
)

// Console 单个用户的混音台：deck 注册表 + 控制循环
type Console struct {
	Decks     *deck.Manager
	Conductor *Conductor
}

// Supervisor 按用户惰性创建并持有 Console
// 保证每个用户只有一个控制循环在运行
type Supervisor struct {
	queue    QueueSource
	sessions SessionRecorder
	sink     DirectiveSink
	mirror   StateMirror
	opts     Options

	mu       sync.Mutex
	ctx      context.Context
	consoles map[int64]*Console
}

// NewSupervisor 创建 Supervisor
func NewSupervisor(queue QueueSource, sessions SessionRecorder, sink DirectiveSink, mirror StateMirror, opts Options) *Supervisor {
	return &Supervisor{
		queue:    queue,
		sessions: sessions,
		sink:     sink,
		mirror:   mirror,
		opts:     opts,
		consoles: make(map[int64]*Console),
	}
}

// Start 绑定生命周期上下文，之后创建的控制循环都随 ctx 结束
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
}

// Console 获取用户的混音台，不存在则创建并启动控制循环
func (s *Supervisor) Console(userID int64) *Console {
	s.mu.Lock()
	defer s.mu.Unlock()

	if console, ok := s.consoles[userID]; ok {
		return console
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	decks := deck.NewManager()
	conductor := NewConductor(userID, s.queue, s.sessions, decks, s.sink, s.mirror, s.opts)
	console := &Console{Decks: decks, Conductor: conductor}
	s.consoles[userID] = console

	go conductor.Run(ctx)
	logger.Info("创建用户混音台", logger.Int64("userId", userID))
	return console
}
