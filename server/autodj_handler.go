package server

import (
	"net/http"
	"strconv"

	"AutoDjFM/logger"
	"AutoDjFM/model"
)

// StartAutoDJHandler 启用自动切歌
func (h *APIHandler) StartAutoDJHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	h.supervisor.Console(userID).Conductor.Enable()
	writeJSON(w, http.StatusOK, map[string]string{"message": "auto dj enabled"})
}

// StopAutoDJHandler 停用自动切歌，活动事务被取消
func (h *APIHandler) StopAutoDJHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	h.supervisor.Console(userID).Conductor.Disable()
	writeJSON(w, http.StatusOK, map[string]string{"message": "auto dj disabled"})
}

// AutoDJStatusHandler 返回自动切歌的启用状态和活动事务
func (h *APIHandler) AutoDJStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	enabled, txn := h.supervisor.Console(userID).Conductor.Status()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":     enabled,
		"transaction": txn,
	})
}

// MixHistoryHandler 返回用户的切歌历史
func (h *APIHandler) MixHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions, err := h.sessionRepo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		logger.Error("[AutoDJ] 查询切歌历史失败", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	completed, err := h.sessionRepo.CountByOutcome(r.Context(), userID, model.OutcomeCompleted)
	if err != nil {
		logger.Error("[AutoDJ] 统计切歌历史失败", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":  sessions,
		"completed": completed,
	})
}
