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

// answerSystemPrompt 要求模型只依据上下文作答并引用页码。
const answerSystemPrompt = `You are a helpful study assistant. Answer the question strictly ` +
	`from the provided context. Cite the page numbers you used. If the context does not ` +
	`contain the answer, say so instead of guessing.`

// Chat 驱动端到端的流式问答管道。
type Chat struct {
	store        store.Store
	sampler      *Sampler
	chatProvider llm.ChatProvider
}

// NewChat 创建问答服务实例。
func NewChat(st store.Store, sampler *Sampler, chatProvider llm.ChatProvider) *Chat {
	return &Chat{
		store:        st,
		sampler:      sampler,
		chatProvider: chatProvider,
	}
}

// AnswerStream 是一次已校验请求的惰性答案流。
// 不可重放，由 Run 一次性驱动。
type AnswerStream struct {
	chat  *Chat
	query string
	index *store.Index
}

// Ask 校验请求并准备答案流。
// 空 ID 列表和缺失索引在这里立刻失败，任何 LLM 调用之前。
func (c *Chat) Ask(ctx context.Context, query string, documentIDs []string) (*AnswerStream, error) {
	if query == "" {
		return nil, errors.ErrStudyInvalidRequest.WithMessage("query is empty")
	}
	if len(documentIDs) == 0 {
		return nil, errors.ErrStudyInvalidRequest.WithMessage("no document ids given")
	}

	idx, err := c.store.LoadMerged(ctx, documentIDs)
	if err != nil {
		return nil, err
	}

	return &AnswerStream{chat: c, query: query, index: idx}, nil
}

// Run 驱动答案流：检索上下文、组装提示词、流式转发模型输出。
// 块按网关产生的顺序原样交给 fn，不缓冲完整答案；
// fn 返回错误时停止消费并返回该错误。
func (s *AnswerStream) Run(ctx context.Context, fn llm.StreamHandler) error {
	contextText, results, err := s.chat.sampler.RetrievalContext(ctx, s.index, s.query)
	if err != nil {
		return err
	}
	logger.Infow("answering query",
		"query", textutil.TruncateString(s.query, 80), "retrieved_chunks", len(results))

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, s.query)

	// 记录 fn 自身的错误（如客户端断开），与网关错误区分
	var fnErr error
	wrapped := func(chunk string) error {
		if err := fn(chunk); err != nil {
			fnErr = err
			return err
		}
		return nil
	}

	if err := s.chat.chatProvider.Stream(ctx, prompt, answerSystemPrompt, wrapped); err != nil {
		if fnErr != nil {
			return fnErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.ErrStudyUpstream.WithCause(err)
	}
	return nil
}
