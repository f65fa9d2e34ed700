// Package studyrag provides the studyrag service application.
package studyrag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	httpopts "github.com/kart-io/studyrag/pkg/options/http"
	llmopts "github.com/kart-io/studyrag/pkg/options/llm"
	logopts "github.com/kart-io/studyrag/pkg/options/logger"
	redisopts "github.com/kart-io/studyrag/pkg/options/redis"
	studyopts "github.com/kart-io/studyrag/pkg/options/study"
)

// CacheOptions 缓存开关配置，嵌入与主题缓存共用。
type CacheOptions struct {
	// Enabled 是否启用 Redis 缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`
}

// NewCacheOptions 创建默认缓存配置。
func NewCacheOptions() *CacheOptions {
	return &CacheOptions{
		Enabled: false,
		TTL:     24 * time.Hour,
	}
}

// Options contains all studyrag service options.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// Study contains study pipeline configuration.
	Study *studyopts.Options `json:"study" mapstructure:"study"`

	// Redis contains Redis connection configuration.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`

	// Cache contains cache behavior configuration.
	Cache *CacheOptions `json:"cache" mapstructure:"cache"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		HTTP:      httpopts.NewOptions(),
		Log:       logopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		Chat:      llmopts.NewChatOptions(),
		Study:     studyopts.NewOptions(),
		Redis:     redisopts.NewOptions(),
		Cache:     NewCacheOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding.")
	o.Chat.AddFlags(fs, "chat.")
	o.Study.AddFlags(fs)
	o.Redis.AddFlags(fs)
	fs.BoolVar(&o.Cache.Enabled, "cache.enabled", o.Cache.Enabled, "Enable Redis-backed embedding and topic caches")
	fs.DurationVar(&o.Cache.TTL, "cache.ttl", o.Cache.TTL, "Cache TTL duration")
}

// Validate validates the options.
func (o *Options) Validate() error {
	if err := o.Log.Validate(); err != nil {
		return err
	}
	if err := o.HTTP.Validate(); err != nil {
		return err
	}
	for _, err := range o.Embedding.Validate() {
		return fmt.Errorf("embedding: %w", err)
	}
	for _, err := range o.Chat.Validate() {
		return fmt.Errorf("chat: %w", err)
	}
	for _, err := range o.Study.Validate() {
		return fmt.Errorf("study: %w", err)
	}
	if o.Cache.Enabled {
		if err := o.Redis.Validate(); err != nil {
			return err
		}
		if o.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive")
		}
	}
	return nil
}

// Complete completes the options.
func (o *Options) Complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.HTTP.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	if err := o.Chat.Complete(); err != nil {
		return err
	}
	return o.Study.Complete()
}
