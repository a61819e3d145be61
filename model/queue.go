package model

// QueueItem 播放队列中的一个条目
// ID 是稳定的条目标识（q- 前缀的 uuid）：队列增删重排后保持不变，
// 自动切歌事务用它来判断队首是否还是自己绑定的那一条
type QueueItem struct {
	ID       string `json:"id"`
	VideoID  string `json:"videoId"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Cover    string `json:"cover,omitempty"`
	Duration int    `json:"duration,omitempty"` // 时长（秒）
	Position int    `json:"position"`           // 在队列中的位置
	AddedAt  int64  `json:"addedAt,omitempty"`  // 添加时间戳毫秒
}
