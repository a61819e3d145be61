package server

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"AutoDjFM/logger"
	"AutoDjFM/model"
	"AutoDjFM/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// 上传音频的最大体积
const maxUploadSize = 200 << 20 // 200 MB

var uploadContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

// ListTracksHandler 返回用户曲库
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	tracks, err := h.trackRepo.ListByUser(r.Context(), userID)
	if err != nil {
		logger.Error("[Track] 查询曲库失败", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to list tracks", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tracks": tracks,
		"count":  len(tracks),
	})
}

// UploadTrackHandler 上传音频文件入库
// 文件写入 MinIO，曲目元数据写入曲库，分配 v- 前缀的内容标识
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "audio file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := uploadContentTypes[ext]
	if !ok {
		http.Error(w, "Unsupported audio format", http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, ext)
	}

	videoID := "v-" + uuid.NewString()
	objectKey := "audio/" + videoID + ext

	if err := storage.PutAudio(r.Context(), h.cfg.MinioBucket, objectKey, file, header.Size, contentType); err != nil {
		logger.Error("[Track] 上传音频失败",
			logger.Int64("userId", userID),
			logger.String("filename", header.Filename),
			logger.ErrorField(err))
		http.Error(w, "Failed to store audio", http.StatusInternalServerError)
		return
	}

	track := &model.Track{
		UserID:    userID,
		VideoID:   videoID,
		Title:     title,
		Artist:    r.FormValue("artist"),
		Album:     r.FormValue("album"),
		ObjectKey: objectKey,
	}
	if err := h.trackRepo.Create(r.Context(), track); err != nil {
		logger.Error("[Track] 写入曲库失败",
			logger.Int64("userId", userID),
			logger.String("videoId", videoID),
			logger.ErrorField(err))
		http.Error(w, "Failed to save track", http.StatusInternalServerError)
		return
	}

	logger.Info("[Track] 上传入库成功",
		logger.Int64("userId", userID),
		logger.String("videoId", videoID),
		logger.String("title", title))
	writeJSON(w, http.StatusCreated, track)
}

// DeleteTrackHandler 软删除曲库中的曲目
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	trackID, err := strconv.ParseInt(mux.Vars(r)["track_id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid track id", http.StatusBadRequest)
		return
	}

	if err := h.trackRepo.SoftDelete(r.Context(), trackID, userID); err != nil {
		logger.Error("[Track] 删除曲目失败",
			logger.Int64("userId", userID),
			logger.Int64("trackId", trackID),
			logger.ErrorField(err))
		http.Error(w, "Failed to delete track", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// StreamAudioHandler 按内容标识流式返回音频文件
// 浏览器 deck 的 <audio> 元素直接指向这个端点
func (h *APIHandler) StreamAudioHandler(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["video_id"]

	track, err := h.trackRepo.GetByVideoID(r.Context(), videoID)
	if err != nil {
		logger.Error("[Track] 查询曲目失败", logger.String("videoId", videoID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if track == nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	object, err := storage.GetAudio(r.Context(), h.cfg.MinioBucket, track.ObjectKey)
	if err != nil {
		logger.Error("[Track] 读取音频对象失败",
			logger.String("videoId", videoID),
			logger.String("objectKey", track.ObjectKey),
			logger.ErrorField(err))
		http.Error(w, "Failed to read audio", http.StatusInternalServerError)
		return
	}
	defer object.Close()

	stat, err := object.Stat()
	if err != nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", stat.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size, 10))
	w.Header().Set("Accept-Ranges", "bytes")

	if _, err := io.Copy(w, object); err != nil {
		logger.Warn("[Track] 音频传输中断", logger.String("videoId", videoID), logger.ErrorField(err))
	}
}
