package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AutoDjFM/core/autodj"
	"AutoDjFM/model"

	"github.com/go-redis/redis/v8"
)

const (
	deckStateKeyFormat = "console:%d:decks" // Hash: deckID -> DeckSnapshot JSON
	activeTxnKeyFormat = "console:%d:txn"   // String: 活动事务 JSON
	consoleTTL         = 24 * time.Hour
)

// DeckCache 把 deck 快照和活动事务镜像到 Redis
// 控制台断线重连后从这里恢复界面状态；决策本身只依赖内存中的事务
type DeckCache struct {
	client *redis.Client
}

// NewDeckCache 创建 deck 缓存
func NewDeckCache(client *redis.Client) *DeckCache {
	return &DeckCache{client: client}
}

// SaveSnapshot 写入单个 deck 的最新快照
func (c *DeckCache) SaveSnapshot(ctx context.Context, userID int64, deckID string, snap model.DeckSnapshot) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal deck snapshot: %w", err)
	}

	key := fmt.Sprintf(deckStateKeyFormat, userID)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, deckID, data)
	pipe.Expire(ctx, key, consoleTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// GetSnapshots 返回全部 deck 快照
func (c *DeckCache) GetSnapshots(ctx context.Context, userID int64) (map[string]model.DeckSnapshot, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	result, err := c.client.HGetAll(ctx, fmt.Sprintf(deckStateKeyFormat, userID)).Result()
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]model.DeckSnapshot, len(result))
	for deckID, data := range result {
		var snap model.DeckSnapshot
		if err := json.Unmarshal([]byte(data), &snap); err == nil {
			snapshots[deckID] = snap
		}
	}
	return snapshots, nil
}

// SaveTransaction 镜像活动事务，txn 为 nil 时等价于清除
func (c *DeckCache) SaveTransaction(ctx context.Context, userID int64, txn *autodj.Transaction) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if txn == nil {
		return c.ClearTransaction(ctx, userID)
	}

	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	return c.client.Set(ctx, fmt.Sprintf(activeTxnKeyFormat, userID), data, consoleTTL).Err()
}

// GetTransaction 读取镜像的活动事务，不存在时返回 nil
func (c *DeckCache) GetTransaction(ctx context.Context, userID int64) (*autodj.Transaction, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, fmt.Sprintf(activeTxnKeyFormat, userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var txn autodj.Transaction
	if err := json.Unmarshal([]byte(data), &txn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &txn, nil
}

// ClearTransaction 清除事务镜像
func (c *DeckCache) ClearTransaction(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return c.client.Del(ctx, fmt.Sprintf(activeTxnKeyFormat, userID)).Err()
}
