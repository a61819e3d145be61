package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"AutoDjFM/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	queueKeyFormat = "djqueue:%d" // Sorted Set: score=位置, member=QueueItem JSON
	queueTTL       = 24 * time.Hour
)

// QueueCache 用户的 DJ 播放队列，存储在 Redis 有序集合中
// 条目拥有稳定的 q- 前缀 ID，增删重排不改变 ID，
// 自动切歌事务依赖这一点来检测队首变化
type QueueCache struct {
	client *redis.Client
}

// NewQueueCache 创建队列缓存
func NewQueueCache(client *redis.Client) *QueueCache {
	return &QueueCache{client: client}
}

// queueKey 根据用户ID生成队列的Redis键
func queueKey(userID int64) string {
	return fmt.Sprintf(queueKeyFormat, userID)
}

// Add 把曲目追加到队尾，返回写入后的条目（含分配的 ID 和位置）
func (c *QueueCache) Add(ctx context.Context, userID int64, item model.QueueItem) (*model.QueueItem, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	items, err := c.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current queue: %w", err)
	}

	if item.ID == "" {
		item.ID = "q-" + uuid.NewString()
	}
	item.Position = 0
	if len(items) > 0 {
		item.Position = items[len(items)-1].Position + 1
	}
	if item.AddedAt == 0 {
		item.AddedAt = time.Now().UnixMilli()
	}

	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue item: %w", err)
	}

	key := queueKey(userID)
	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(item.Position), Member: data})
	pipe.Expire(ctx, key, queueTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to add item to queue: %w", err)
	}

	return &item, nil
}

// List 按播放顺序返回整个队列
func (c *QueueCache) List(ctx context.Context, userID int64) ([]model.QueueItem, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	result, err := c.client.ZRangeByScore(ctx, queueKey(userID), &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.QueueItem{}, nil
		}
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	items := make([]model.QueueItem, 0, len(result))
	for _, data := range result {
		var item model.QueueItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Front 返回当前队首条目，队列为空时返回 nil
func (c *QueueCache) Front(ctx context.Context, userID int64) (*model.QueueItem, error) {
	items, err := c.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	item := items[0]
	return &item, nil
}

// PopFront 移除队首条目
func (c *QueueCache) PopFront(ctx context.Context, userID int64) error {
	items, err := c.List(ctx, userID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return c.Remove(ctx, userID, items[0].ID)
}

// Remove 按条目ID移除，并压实剩余条目的位置
func (c *QueueCache) Remove(ctx context.Context, userID int64, itemID string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	items, err := c.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}

	for i, item := range items {
		if item.ID == itemID {
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("failed to marshal queue item: %w", err)
			}
			if err := c.client.ZRem(ctx, queueKey(userID), data).Err(); err != nil {
				return fmt.Errorf("failed to remove item from queue: %w", err)
			}
			// 后面还有条目时重新压实位置
			if i < len(items)-1 {
				if err := c.compact(ctx, userID); err != nil {
					return fmt.Errorf("failed to compact queue: %w", err)
				}
			}
			return nil
		}
	}

	return fmt.Errorf("item not found in queue")
}

// Clear 清空队列
func (c *QueueCache) Clear(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := c.client.Del(ctx, queueKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// Reorder 按给定的条目ID顺序重排队列
// 未出现在 itemIDs 中的条目被丢弃
func (c *QueueCache) Reorder(ctx context.Context, userID int64, itemIDs []string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	items, err := c.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}

	itemMap := make(map[string]model.QueueItem, len(items))
	for _, item := range items {
		itemMap[item.ID] = item
	}

	if err := c.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear queue before reordering: %w", err)
	}

	key := queueKey(userID)
	for i, id := range itemIDs {
		item, exists := itemMap[id]
		if !exists {
			continue
		}
		item.Position = i
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal queue item: %w", err)
		}
		if err := c.client.ZAdd(ctx, key, &redis.Z{Score: float64(i), Member: data}).Err(); err != nil {
			return fmt.Errorf("failed to add item to reordered queue: %w", err)
		}
	}

	if err := c.client.Expire(ctx, key, queueTTL).Err(); err != nil {
		return fmt.Errorf("failed to set queue expiration: %w", err)
	}
	return nil
}

// Shuffle 随机打乱队列顺序
func (c *QueueCache) Shuffle(ctx context.Context, userID int64) error {
	items, err := c.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}
	if len(items) <= 1 {
		return nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	return c.Reorder(ctx, userID, ids)
}

// compact 重新压实条目位置（0..n-1）
func (c *QueueCache) compact(ctx context.Context, userID int64) error {
	items, err := c.List(ctx, userID)
	if err != nil {
		return err
	}

	key := queueKey(userID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return err
	}

	for i, item := range items {
		item.Position = i
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if err := c.client.ZAdd(ctx, key, &redis.Z{Score: float64(i), Member: data}).Err(); err != nil {
			return err
		}
	}
	return nil
}
