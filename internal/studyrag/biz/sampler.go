package biz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/studyrag/internal/studyrag/store"
	"github.com/kart-io/studyrag/pkg/llm"
	"github.com/kart-io/studyrag/pkg/utils/errors"
)

// SamplerConfig 上下文采样配置。
type SamplerConfig struct {
	// TopK 检索策略返回的块数量。
	TopK int
	// SampleSize 随机策略的最大抽样数量。
	SampleSize int
}

// DefaultSamplerConfig 返回默认采样配置。
func DefaultSamplerConfig() *SamplerConfig {
	return &SamplerConfig{
		TopK:       4,
		SampleSize: 15,
	}
}

// Sampler 从索引中抽取有界的上下文片段。
// 问答路径用相似度检索，生成路径用均匀随机抽样。
type Sampler struct {
	embedProvider llm.EmbeddingProvider
	config        *SamplerConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler 创建采样器实例。
func NewSampler(embedProvider llm.EmbeddingProvider, config *SamplerConfig) *Sampler {
	if config == nil {
		config = DefaultSamplerConfig()
	}
	return &Sampler{
		embedProvider: embedProvider,
		config:        config,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RetrievalContext 用查询向量检索 top-k 块并渲染为上下文。
// 相同索引和查询下结果确定。
func (s *Sampler) RetrievalContext(ctx context.Context, idx *store.Index, query string) (string, []store.SearchResult, error) {
	embedding, err := s.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return "", nil, errors.ErrStudyUpstream.WithCause(fmt.Errorf("failed to embed query: %w", err))
	}

	results := idx.Search(embedding, s.config.TopK)

	chunks := make([]store.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return RenderContext(chunks), results, nil
}

// RandomContext 均匀抽样 min(SampleSize, 总块数) 个块并渲染。
// 空索引返回空上下文，不报错。
func (s *Sampler) RandomContext(idx *store.Index) string {
	s.mu.Lock()
	chunks := idx.Sample(s.rng, s.config.SampleSize)
	s.mu.Unlock()

	return RenderContext(chunks)
}

// RenderContext 将块渲染为提示词上下文。
// 每块形如 "Content from page <page>:\n<text>"，块之间以空行分隔。
func RenderContext(chunks []store.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("Content from page %d:\n%s", c.Page, c.Text)
	}
	return strings.Join(parts, "\n\n")
}
