package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/studyrag/internal/pkg/study/textutil"
	"github.com/kart-io/studyrag/internal/studyrag/store"
	"github.com/kart-io/studyrag/pkg/llm"
	"github.com/kart-io/studyrag/pkg/utils/errors"
)

const topicSystemPrompt = `You suggest YouTube search topics for students. ` +
	`Respond with a JSON array of strings and nothing else.`

const topicPromptTemplate = `Based on the following study material, suggest exactly %d ` +
	`YouTube search queries that would help a student learn these concepts in more depth.

Return a JSON array of %d strings, for example: ["topic one", "topic two"].

Study material:
%s`

// TopicsConfig 主题推荐配置。
type TopicsConfig struct {
	// PerDocument 每篇文档推荐的主题数。
	PerDocument int
}

// Topics 为文档推荐相关的视频搜索主题。
type Topics struct {
	store        store.Store
	sampler      *Sampler
	chatProvider llm.ChatProvider
	cache        *TopicCache
	config       *TopicsConfig
}

// NewTopics 创建主题推荐服务，cache 可以为 nil。
func NewTopics(st store.Store, sampler *Sampler, chatProvider llm.ChatProvider, cache *TopicCache, config *TopicsConfig) *Topics {
	if config == nil {
		config = &TopicsConfig{PerDocument: 2}
	}
	if config.PerDocument <= 0 {
		config.PerDocument = 2
	}
	if cache == nil {
		cache = NewTopicCache(nil, nil)
	}
	return &Topics{
		store:        st,
		sampler:      sampler,
		chatProvider: chatProvider,
		cache:        cache,
		config:       config,
	}
}

// Suggest 为每篇文档生成主题列表。
// 单篇文档失败不影响其余：该文档返回空列表。
func (t *Topics) Suggest(ctx context.Context, documentIDs []string) (map[string][]string, error) {
	if len(documentIDs) == 0 {
		return nil, errors.ErrStudyInvalidRequest.WithMessage("no document ids given")
	}

	result := make(map[string][]string, len(documentIDs))
	for _, id := range documentIDs {
		if topics, ok := t.cache.Get(ctx, id); ok {
			result[id] = topics
			continue
		}

		topics, err := t.suggestOne(ctx, id)
		if err != nil {
			logger.Warnw("topic suggestion failed for document", "document_id", id, "error", err.Error())
			result[id] = []string{}
			continue
		}

		t.cache.Set(ctx, id, topics)
		result[id] = topics
	}

	return result, nil
}

func (t *Topics) suggestOne(ctx context.Context, documentID string) ([]string, error) {
	idx, err := t.store.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if idx.Len() == 0 {
		return nil, fmt.Errorf("document %s has no content", documentID)
	}

	contextText := t.sampler.RandomContext(idx)
	prompt := fmt.Sprintf(topicPromptTemplate, t.config.PerDocument, t.config.PerDocument, contextText)

	raw, err := t.chatProvider.Generate(ctx, prompt, topicSystemPrompt)
	if err != nil {
		return nil, err
	}

	topics := parseTopics(raw, t.config.PerDocument)
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics in model output")
	}
	return topics, nil
}

// parseTopics 解析模型返回的主题列表。
// 优先按 JSON 数组解析，失败后退化为按行切分。
func parseTopics(raw string, limit int) []string {
	topics, err := textutil.ParseJSONArray(raw)
	if err != nil || len(topics) == 0 {
		topics = textutil.SplitByLines(raw, 3)
	}
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}
