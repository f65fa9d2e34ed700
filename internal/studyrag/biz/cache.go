package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/studyrag/pkg/utils/json"
)

// TopicCacheConfig 主题缓存配置。
type TopicCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// TopicCache 按文档缓存推荐主题。
// 缓存不可用时静默降级，调用方重新生成即可。
type TopicCache struct {
	redis  *goredis.Client
	config *TopicCacheConfig
}

// NewTopicCache 创建主题缓存实例。
func NewTopicCache(redis *goredis.Client, config *TopicCacheConfig) *TopicCache {
	if config == nil {
		config = &TopicCacheConfig{
			Enabled:   false,
			TTL:       24 * time.Hour,
			KeyPrefix: "studyrag:topics:",
		}
	}
	return &TopicCache{
		redis:  redis,
		config: config,
	}
}

func (c *TopicCache) cacheKey(documentID string) string {
	return c.config.KeyPrefix + documentID
}

// Get 读取某文档的缓存主题，未命中返回 (nil, false)。
func (c *TopicCache) Get(ctx context.Context, documentID string) ([]string, bool) {
	if !c.config.Enabled || c.redis == nil {
		return nil, false
	}

	key := c.cacheKey(documentID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			logger.Warnw("failed to get topics from cache", "error", err.Error(), "key", key)
		}
		return nil, false
	}

	var topics []string
	if err := json.Unmarshal(data, &topics); err != nil {
		logger.Warnw("failed to unmarshal cached topics", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}

	return topics, true
}

// Set 写入某文档的主题列表。
func (c *TopicCache) Set(ctx context.Context, documentID string, topics []string) {
	if !c.config.Enabled || c.redis == nil {
		return
	}

	data, err := json.Marshal(topics)
	if err != nil {
		logger.Warnw("failed to marshal topics for caching", "error", err.Error())
		return
	}

	key := c.cacheKey(documentID)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache topics", "error", err.Error(), "key", key)
	}
}
