package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/studyrag/pkg/llm"
)

// fakeEmbedProvider 返回确定性向量，便于断言检索顺序。
type fakeEmbedProvider struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (p *fakeEmbedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if v, ok := p.vectors[text]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, []float32{1, 0, 0})
	}
	return out, nil
}

func (p *fakeEmbedProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (p *fakeEmbedProvider) Name() string { return "fake-embed" }

// fakeChatProvider 按脚本逐次返回响应，记录收到的 prompt。
type fakeChatProvider struct {
	responses []string
	errs      []error
	prompts   []string
	chunks    []string
	streamErr error
	calls     int
}

func (p *fakeChatProvider) next(prompt string) (string, error) {
	i := p.calls
	p.calls++
	p.prompts = append(p.prompts, prompt)
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return "", fmt.Errorf("no scripted response for call %d", i)
}

func (p *fakeChatProvider) Chat(_ context.Context, messages []llm.Message) (string, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return p.next(last)
}

func (p *fakeChatProvider) Generate(_ context.Context, prompt string, _ string) (string, error) {
	return p.next(prompt)
}

func (p *fakeChatProvider) Stream(_ context.Context, prompt string, _ string, fn llm.StreamHandler) error {
	p.calls++
	p.prompts = append(p.prompts, prompt)
	if p.streamErr != nil {
		return p.streamErr
	}
	for _, chunk := range p.chunks {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeChatProvider) Name() string { return "fake-chat" }
