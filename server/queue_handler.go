package server

import (
	"encoding/json"
	"net/http"

	"AutoDjFM/logger"
	"AutoDjFM/model"

	"github.com/gorilla/mux"
)

// GetQueueHandler 返回当前播放队列
func (h *APIHandler) GetQueueHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	items, err := h.queueCache.List(r.Context(), userID)
	if err != nil {
		logger.Error("[Queue] 获取队列失败", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to get queue", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// AddToQueueHandler 把曲目加入队尾
// 客户端可以直接提交曲目元数据，也可以只给 videoId 由服务端补全
func (h *APIHandler) AddToQueueHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req struct {
		VideoID  string `json:"videoId"`
		Title    string `json:"title"`
		Artist   string `json:"artist"`
		Cover    string `json:"cover"`
		Duration int    `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.VideoID == "" {
		http.Error(w, "videoId is required", http.StatusBadRequest)
		return
	}

	// 曲库中有对应曲目时用曲库元数据补全
	if req.Title == "" {
		track, err := h.trackRepo.GetByVideoID(r.Context(), req.VideoID)
		if err != nil {
			logger.Error("[Queue] 查询曲目失败", logger.String("videoId", req.VideoID), logger.ErrorField(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if track != nil {
			req.Title = track.Title
			req.Artist = track.Artist
			req.Duration = int(track.Duration)
		}
	}

	item, err := h.queueCache.Add(r.Context(), userID, model.QueueItem{
		VideoID:  req.VideoID,
		Title:    req.Title,
		Artist:   req.Artist,
		Cover:    req.Cover,
		Duration: req.Duration,
	})
	if err != nil {
		logger.Error("[Queue] 加入队列失败", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to add to queue", http.StatusInternalServerError)
		return
	}

	h.notifyQueueChanged(r.Context(), userID)
	logger.Info("[Queue] 曲目已加入队列",
		logger.Int64("userId", userID),
		logger.String("itemId", item.ID),
		logger.String("videoId", item.VideoID))
	writeJSON(w, http.StatusCreated, item)
}

// RemoveFromQueueHandler 按条目ID从队列移除
func (h *APIHandler) RemoveFromQueueHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	itemID := mux.Vars(r)["item_id"]
	if itemID == "" {
		http.Error(w, "item_id is required", http.StatusBadRequest)
		return
	}

	if err := h.queueCache.Remove(r.Context(), userID, itemID); err != nil {
		logger.Error("[Queue] 移除条目失败",
			logger.Int64("userId", userID),
			logger.String("itemId", itemID),
			logger.ErrorField(err))
		http.Error(w, "Failed to remove item", http.StatusInternalServerError)
		return
	}

	h.notifyQueueChanged(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

// ClearQueueHandler 清空队列
func (h *APIHandler) ClearQueueHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	if err := h.queueCache.Clear(r.Context(), userID); err != nil {
		logger.Error("[Queue] 清空队列失败", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to clear queue", http.StatusInternalServerError)
		return
	}

	h.notifyQueueChanged(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "cleared"})
}

// ReorderQueueHandler 按给定顺序重排队列
func (h *APIHandler) ReorderQueueHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req struct {
		ItemIDs []string `json:"itemIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.ItemIDs) == 0 {
		http.Error(w, "itemIds is required", http.StatusBadRequest)
		return
	}

	if err := h.queueCache.Reorder(r.Context(), userID, req.ItemIDs); err != nil {
		logger.Error("[Queue] 重排队列失败", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to reorder queue", http.StatusInternalServerError)
		return
	}

	h.notifyQueueChanged(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "reordered"})
}

// ShuffleQueueHandler 随机打乱队列
func (h *APIHandler) ShuffleQueueHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	if err := h.queueCache.Shuffle(r.Context(), userID); err != nil {
		logger.Error("[Queue] 打乱队列失败", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to shuffle queue", http.StatusInternalServerError)
		return
	}

	h.notifyQueueChanged(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "shuffled"})
}
