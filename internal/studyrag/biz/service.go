package biz

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/studyrag/internal/model"
	"github.com/kart-io/studyrag/internal/studyrag/store"
	"github.com/kart-io/studyrag/pkg/llm"
	"github.com/kart-io/studyrag/pkg/utils/httpclient"
)

// Service 定义学习助手服务接口。
type Service interface {
	// Ask 校验请求并准备一次流式问答。
	Ask(ctx context.Context, query string, documentIDs []string) (*AnswerStream, error)
	// GenerateQuiz 基于随机抽样的上下文生成测验。
	GenerateQuiz(ctx context.Context, documentIDs []string, numMCQ, numSAQ, numLAQ int) (*model.Quiz, error)
	// GradeQuiz 按提交顺序为一批答案评分。
	GradeQuiz(ctx context.Context, items []model.GradingItem) (*model.GradeResult, error)
	// SuggestTopics 为每篇文档推荐视频搜索主题。
	SuggestTopics(ctx context.Context, documentIDs []string) (map[string][]string, error)
	// ProcessDocument 把文档排入后台摄取队列。
	ProcessDocument(pdfID, url string) error
}

// StudyService 组合 Chat、Quiz、Topics 和 Ingestor 提供完整服务。
type StudyService struct {
	chat     *Chat
	quiz     *Quiz
	topics   *Topics
	ingestor *Ingestor
}

// ServiceConfig 学习助手服务配置。
type ServiceConfig struct {
	SamplerConfig *SamplerConfig
	QuizConfig    *QuizConfig
	TopicsConfig  *TopicsConfig
	TopicCache    *TopicCacheConfig
	IngestConfig  *IngestConfig
}

// NewStudyService 创建服务实例，redis 可以为 nil。
func NewStudyService(
	st store.Store,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	redis *goredis.Client,
	client *httpclient.Client,
	config *ServiceConfig,
) (*StudyService, error) {
	if config == nil {
		config = &ServiceConfig{}
	}

	sampler := NewSampler(embedProvider, config.SamplerConfig)
	cache := NewTopicCache(redis, config.TopicCache)
	topics := NewTopics(st, sampler, chatProvider, cache, config.TopicsConfig)

	ingestor, err := NewIngestor(st, embedProvider, topics, client, config.IngestConfig)
	if err != nil {
		return nil, err
	}

	return &StudyService{
		chat:     NewChat(st, sampler, chatProvider),
		quiz:     NewQuiz(st, sampler, chatProvider, config.QuizConfig),
		topics:   topics,
		ingestor: ingestor,
	}, nil
}

// Ask 实现 Service 接口。
func (s *StudyService) Ask(ctx context.Context, query string, documentIDs []string) (*AnswerStream, error) {
	return s.chat.Ask(ctx, query, documentIDs)
}

// GenerateQuiz 实现 Service 接口。
func (s *StudyService) GenerateQuiz(ctx context.Context, documentIDs []string, numMCQ, numSAQ, numLAQ int) (*model.Quiz, error) {
	return s.quiz.Generate(ctx, documentIDs, numMCQ, numSAQ, numLAQ)
}

// GradeQuiz 实现 Service 接口。
func (s *StudyService) GradeQuiz(ctx context.Context, items []model.GradingItem) (*model.GradeResult, error) {
	return s.quiz.Grade(ctx, items)
}

// SuggestTopics 实现 Service 接口。
func (s *StudyService) SuggestTopics(ctx context.Context, documentIDs []string) (map[string][]string, error) {
	return s.topics.Suggest(ctx, documentIDs)
}

// ProcessDocument 实现 Service 接口。
func (s *StudyService) ProcessDocument(pdfID, url string) error {
	return s.ingestor.Enqueue(pdfID, url)
}

// Close 释放后台资源。
func (s *StudyService) Close() {
	s.ingestor.Release()
}
