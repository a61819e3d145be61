package server

import (
	"encoding/json"
	"net/http"

	"AutoDjFM/logger"
	"AutoDjFM/model"

	"github.com/gorilla/mux"
)

// GetDecksHandler 返回全部 deck 的最新快照
func (h *APIHandler) GetDecksHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	console := h.supervisor.Console(userID)
	writeJSON(w, http.StatusOK, console.Decks.All())
}

// ReportDeckStateHandler 接收浏览器对单个 deck 的状态上报
// WebSocket 是主通道，这个 HTTP 端点留作降级路径
func (h *APIHandler) ReportDeckStateHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	deckID := mux.Vars(r)["deck_id"]

	var snap model.DeckSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report := model.DeckReport{DeckID: deckID, Snapshot: snap}
	console := h.supervisor.Console(userID)
	if err := console.Decks.Apply(report); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.deckCache.SaveSnapshot(r.Context(), userID, deckID, snap); err != nil {
		logger.Warn("[Deck] 镜像快照失败", logger.Int64("userId", userID), logger.ErrorField(err))
	}
	console.Conductor.ReportDeck(report)

	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// ManualLoadHandler 用户手动往 deck 加载曲目
// 若该 deck 正是活动事务的目标，事务会被取消
func (h *APIHandler) ManualLoadHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	deckID := mux.Vars(r)["deck_id"]
	if !model.IsValidDeckID(deckID) {
		http.Error(w, "Unknown deck id", http.StatusBadRequest)
		return
	}

	var req struct {
		VideoID string `json:"videoId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	console := h.supervisor.Console(userID)
	console.Conductor.NotifyManualLoad(deckID)

	logger.Info("[Deck] 手动加载",
		logger.Int64("userId", userID),
		logger.String("deck", deckID),
		logger.String("videoId", req.VideoID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}
