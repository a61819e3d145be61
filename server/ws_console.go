package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"AutoDjFM/cache"
	"AutoDjFM/core/autodj"
	"AutoDjFM/logger"
	"AutoDjFM/model"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// consoleMessage 浏览器控制台上行消息的统一外壳
type consoleMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// directiveMessage 下行给控制台的指令外壳
type directiveMessage struct {
	Type string           `json:"type"`
	Data autodj.Directive `json:"data"`
}

// consoleClient 一条控制台 WebSocket 连接
type consoleClient struct {
	hub    *ConsoleHub
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

type registration struct {
	client *consoleClient
}

type outbound struct {
	userID int64
	data   []byte
}

// ConsoleHub 管理所有控制台连接，按用户分发指令
// 同一用户可以开多个标签页，指令广播到该用户的全部连接
type ConsoleHub struct {
	supervisor *autodj.Supervisor
	deckCache  *cache.DeckCache

	register   chan registration
	unregister chan registration
	directives chan outbound
	clients    map[int64]map[*consoleClient]bool
}

// NewConsoleHub 创建控制台连接中心
func NewConsoleHub() *ConsoleHub {
	return &ConsoleHub{
		register:   make(chan registration),
		unregister: make(chan registration),
		directives: make(chan outbound, 64),
		clients:    make(map[int64]map[*consoleClient]bool),
	}
}

// Bind 注入依赖，hub 和 supervisor 互相引用，只能在构造后绑定
func (h *ConsoleHub) Bind(supervisor *autodj.Supervisor, deckCache *cache.DeckCache) {
	h.supervisor = supervisor
	h.deckCache = deckCache
}

// Run 启动分发循环，阻塞直到 ctx 结束
func (h *ConsoleHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reg := <-h.register:
			set, ok := h.clients[reg.client.userID]
			if !ok {
				set = make(map[*consoleClient]bool)
				h.clients[reg.client.userID] = set
			}
			set[reg.client] = true
			logger.Info("控制台已连接",
				logger.Int64("userId", reg.client.userID),
				logger.Int("connections", len(set)))
		case reg := <-h.unregister:
			if set, ok := h.clients[reg.client.userID]; ok {
				if _, exists := set[reg.client]; exists {
					delete(set, reg.client)
					close(reg.client.send)
					if len(set) == 0 {
						delete(h.clients, reg.client.userID)
					}
				}
			}
		case out := <-h.directives:
			for client := range h.clients[out.userID] {
				select {
				case client.send <- out.data:
				default:
					// 发送缓冲满说明连接已死，踢掉
					delete(h.clients[out.userID], client)
					close(client.send)
				}
			}
		}
	}
}

// SendDirective 把 conductor 的指令投递给用户的全部控制台连接
func (h *ConsoleHub) SendDirective(userID int64, d autodj.Directive) {
	data, err := json.Marshal(directiveMessage{Type: "directive", Data: d})
	if err != nil {
		logger.Error("序列化指令失败", logger.ErrorField(err))
		return
	}
	select {
	case h.directives <- outbound{userID: userID, data: data}:
	default:
		logger.Warn("指令分发队列已满，指令被丢弃", logger.Int64("userId", userID))
	}
}

// ServeConsoleWS 把HTTP请求升级为控制台 WebSocket 连接
func (h *APIHandler) ServeConsoleWS(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket升级失败", logger.Int64("userId", userID), logger.ErrorField(err))
		return
	}

	client := &consoleClient{
		hub:    h.hub,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
	}
	h.hub.register <- registration{client: client}

	go client.writePump()
	go client.readPump()
}

// readPump 读取控制台上行消息并转交给该用户的控制循环
func (c *consoleClient) readPump() {
	defer func() {
		c.hub.unregister <- registration{client: c}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	console := c.hub.supervisor.Console(c.userID)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("控制台连接异常断开", logger.Int64("userId", c.userID), logger.ErrorField(err))
			}
			return
		}

		var msg consoleMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("解析控制台消息失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
			continue
		}
		c.dispatch(console, msg)
	}
}

// dispatch 按消息类型分发上行消息
func (c *consoleClient) dispatch(console *autodj.Console, msg consoleMessage) {
	switch msg.Type {
	case "deck_report":
		var report model.DeckReport
		if err := json.Unmarshal(msg.Data, &report); err != nil {
			logger.Warn("解析deck上报失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
			return
		}
		if err := console.Decks.Apply(report); err != nil {
			logger.Warn("应用deck上报失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
			return
		}
		if c.hub.deckCache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := c.hub.deckCache.SaveSnapshot(ctx, c.userID, report.DeckID, report.Snapshot); err != nil {
				logger.Warn("镜像deck快照失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
			}
			cancel()
		}
		console.Conductor.ReportDeck(report)
	case "playback_event":
		var ev autodj.PlaybackEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Warn("解析播放事件失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
			return
		}
		console.Conductor.ReportPlayback(ev)
	case "manual_load":
		var load struct {
			DeckID string `json:"deckId"`
		}
		if err := json.Unmarshal(msg.Data, &load); err != nil {
			logger.Warn("解析手动加载事件失败", logger.Int64("userId", c.userID), logger.ErrorField(err))
			return
		}
		console.Conductor.NotifyManualLoad(load.DeckID)
	default:
		logger.Warn("未知的控制台消息类型",
			logger.Int64("userId", c.userID),
			logger.String("type", msg.Type))
	}
}

// writePump 把下行指令写入连接，并维持心跳
func (c *consoleClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
