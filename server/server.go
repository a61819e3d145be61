package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AutoDjFM/cache"
	"AutoDjFM/config"
	"AutoDjFM/core/auth"
	"AutoDjFM/core/autodj"
	"AutoDjFM/core/ingest"
	"AutoDjFM/db"
	"AutoDjFM/logger"
	"AutoDjFM/repository"
	"AutoDjFM/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetJWTSecret(cfg.JWTSecret)

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("MinIO初始化失败", logger.ErrorField(err))
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("数据库连接失败", logger.ErrorField(err))
	}
	defer db.DB.Close()

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		logger.Fatal("数据库初始化失败", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("GORM连接失败", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Redis连接失败", logger.ErrorField(err))
	}
	defer db.CloseRedis()
	logger.Info("Redis连接成功")

	// 后台组件的生命周期上下文，收到退出信号后统一取消
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userRepo := repository.NewGormUserRepository(db.GormDB)
	trackRepo := repository.NewGormTrackRepository(db.GormDB)
	sessionRepo := repository.NewGormMixSessionRepository(db.GormDB)
	queueCache := cache.NewQueueCache(db.RedisClient)
	deckCache := cache.NewDeckCache(db.RedisClient)

	hub := NewConsoleHub()
	supervisor := autodj.NewSupervisor(queueCache, sessionRepo, hub, deckCache, autodj.Options{
		TimeoutMs:    cfg.AutoDJTimeoutMs,
		TickInterval: time.Duration(cfg.AutoDJTickMs) * time.Millisecond,
	})
	supervisor.Start(ctx)
	hub.Bind(supervisor, deckCache)
	go hub.Run(ctx)

	// 入库目录监听，自动注册新音频
	watcher := ingest.NewWatcher(cfg.IngestDir, cfg.MinioBucket, cfg.IngestOwnerID, trackRepo)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Error("入库监听退出", logger.ErrorField(err))
		}
	}()

	apiHandler := NewAPIHandler(userRepo, trackRepo, sessionRepo, queueCache, deckCache, supervisor, hub, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// 曲库相关的API端点
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.ListTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{track_id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/upload", apiHandler.AuthMiddleware(apiHandler.UploadTrackHandler)).Methods(http.MethodPost)

	// 播放队列相关的API端点
	router.HandleFunc("/api/queue", apiHandler.AuthMiddleware(apiHandler.GetQueueHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/queue", apiHandler.AuthMiddleware(apiHandler.AddToQueueHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/queue", apiHandler.AuthMiddleware(apiHandler.ClearQueueHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/queue/order", apiHandler.AuthMiddleware(apiHandler.ReorderQueueHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/queue/shuffle", apiHandler.AuthMiddleware(apiHandler.ShuffleQueueHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/queue/{item_id}", apiHandler.AuthMiddleware(apiHandler.RemoveFromQueueHandler)).Methods(http.MethodDelete)

	// Deck 相关的API端点
	router.HandleFunc("/api/decks", apiHandler.AuthMiddleware(apiHandler.GetDecksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/decks/{deck_id}/state", apiHandler.AuthMiddleware(apiHandler.ReportDeckStateHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/decks/{deck_id}/load", apiHandler.AuthMiddleware(apiHandler.ManualLoadHandler)).Methods(http.MethodPost)

	// 自动切歌相关的API端点
	router.HandleFunc("/api/autodj/start", apiHandler.AuthMiddleware(apiHandler.StartAutoDJHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/autodj/stop", apiHandler.AuthMiddleware(apiHandler.StopAutoDJHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/autodj/status", apiHandler.AuthMiddleware(apiHandler.AutoDJStatusHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/autodj/history", apiHandler.AuthMiddleware(apiHandler.MixHistoryHandler)).Methods(http.MethodGet)

	// 控制台 WebSocket
	router.HandleFunc("/ws/console", apiHandler.AuthMiddleware(apiHandler.ServeConsoleWS)).Methods(http.MethodGet)

	// 音频流式服务
	router.HandleFunc("/audio/{video_id}", apiHandler.StreamAudioHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("服务器启动", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("服务器关闭中...")
	cancel()

	// 创建一个5秒超时的上下文
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// 优雅关闭服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("服务器强制关闭", logger.ErrorField(err))
	}

	logger.Info("服务器已停止")
}
