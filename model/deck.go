package model

// 固定的两个播放 Deck，浏览器端的混音台与此保持一致
const (
	DeckA = "A"
	DeckB = "B"
)

// DeckIDs 返回全部 deck 标识
func DeckIDs() []string {
	return []string{DeckA, DeckB}
}

// IsValidDeckID 校验 deck 标识是否合法
func IsValidDeckID(id string) bool {
	return id == DeckA || id == DeckB
}

// DeckSnapshot 播放器上报的 deck 状态快照
// VideoID 为空字符串表示播放器尚未填充内容标识
type DeckSnapshot struct {
	IsReady   bool   `json:"isReady"`
	Playing   bool   `json:"playing"`
	VideoID   string `json:"videoId,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"` // 时间戳毫秒
}

// DeckReport WebSocket/HTTP 上报的 deck 事件
type DeckReport struct {
	DeckID   string       `json:"deckId"`
	Snapshot DeckSnapshot `json:"snapshot"`
}
