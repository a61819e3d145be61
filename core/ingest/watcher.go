package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"AutoDjFM/logger"
	"AutoDjFM/model"
	"AutoDjFM/repository"
	"AutoDjFM/storage"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// 支持的音频扩展名
var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

// Watcher 监听入库目录，把新出现的音频文件注册进曲库
// 文件上传到 MinIO 后分配 v- 前缀的内容标识（videoId），
// 浏览器 deck 用它确认自己加载的内容
type Watcher struct {
	dir     string
	bucket  string
	ownerID int64 // 入库曲目归属的用户
	tracks  repository.TrackRepository
}

// NewWatcher 创建入库监听器
func NewWatcher(dir, bucket string, ownerID int64, tracks repository.TrackRepository) *Watcher {
	return &Watcher{dir: dir, bucket: bucket, ownerID: ownerID, tracks: tracks}
}

// Run 启动监听，阻塞直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create ingest dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch ingest dir: %w", err)
	}
	logger.Info("入库目录监听已启动", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				w.handleNewFile(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("入库目录监听错误", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) handleNewFile(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := audioExtensions[ext]
	if !ok {
		return
	}

	// 等待写入方完成，避免读到半个文件
	time.Sleep(500 * time.Millisecond)

	file, err := os.Open(path)
	if err != nil {
		logger.Error("打开入库文件失败", logger.String("path", path), logger.ErrorField(err))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		logger.Error("读取入库文件信息失败", logger.String("path", path), logger.ErrorField(err))
		return
	}

	videoID := "v-" + uuid.NewString()
	objectKey := "audio/" + videoID + ext

	if err := storage.PutAudio(ctx, w.bucket, objectKey, file, info.Size(), contentType); err != nil {
		logger.Error("上传入库文件失败", logger.String("path", path), logger.ErrorField(err))
		return
	}

	title := strings.TrimSuffix(filepath.Base(path), ext)
	track := &model.Track{
		UserID:    w.ownerID,
		VideoID:   videoID,
		Title:     title,
		ObjectKey: objectKey,
	}
	if err := w.tracks.Create(ctx, track); err != nil {
		logger.Error("注册入库曲目失败", logger.String("path", path), logger.ErrorField(err))
		return
	}

	logger.Info("曲目入库成功",
		logger.String("videoId", videoID),
		logger.String("title", title),
		logger.Int64("trackId", track.ID))
}
