package server

import (
	"context"
	"encoding/json"
	"net/http"

	"AutoDjFM/cache"
	"AutoDjFM/config"
	"AutoDjFM/core/autodj"
	"AutoDjFM/logger"
	"AutoDjFM/repository"
)

// contextKey 避免 context 键冲突
type contextKey string

const (
	ctxKeyUserID   contextKey = "userID"
	ctxKeyUsername contextKey = "username"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo    repository.UserRepository
	trackRepo   repository.TrackRepository
	sessionRepo repository.MixSessionRepository
	queueCache  *cache.QueueCache
	deckCache   *cache.DeckCache
	supervisor  *autodj.Supervisor
	hub         *ConsoleHub
	cfg         *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	userRepo repository.UserRepository,
	trackRepo repository.TrackRepository,
	sessionRepo repository.MixSessionRepository,
	queueCache *cache.QueueCache,
	deckCache *cache.DeckCache,
	supervisor *autodj.Supervisor,
	hub *ConsoleHub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:    userRepo,
		trackRepo:   trackRepo,
		sessionRepo: sessionRepo,
		queueCache:  queueCache,
		deckCache:   deckCache,
		supervisor:  supervisor,
		hub:         hub,
		cfg:         cfg,
	}
}

// userIDFromContext 从请求上下文取出已认证的用户ID
func userIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(ctxKeyUserID).(int64); ok {
		return id
	}
	return 0
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("写入响应失败", logger.ErrorField(err))
	}
}

// notifyQueueChanged 队列变更后把最新队首告知控制循环
func (h *APIHandler) notifyQueueChanged(ctx context.Context, userID int64) {
	front, err := h.queueCache.Front(ctx, userID)
	if err != nil {
		logger.Error("获取队首失败", logger.Int64("userId", userID), logger.ErrorField(err))
		return
	}
	frontID := ""
	if front != nil {
		frontID = front.ID
	}
	h.supervisor.Console(userID).Conductor.NotifyQueueChanged(frontID)
}
