package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/studyrag/internal/model"
	"github.com/kart-io/studyrag/internal/pkg/study/textutil"
	"github.com/kart-io/studyrag/internal/studyrag/store"
	"github.com/kart-io/studyrag/pkg/llm"
	"github.com/kart-io/studyrag/pkg/utils/errors"
	"github.com/kart-io/studyrag/pkg/utils/json"
)

const quizSystemPrompt = `You are a quiz generator for study material. ` +
	`Respond with a single JSON object and nothing else.`

const quizPromptTemplate = `Based on the following study material, generate a quiz with ` +
	`exactly %d multiple-choice questions, %d short-answer questions and %d long-answer questions.

Return a JSON object with keys "mcqs", "saqs" and "laqs".
Each mcq has "question", "options" (4 strings) and "answer" (one of the options).
Each saq and laq has "question" and "answer" (the ideal answer).

Study material:
%s`

const gradeSystemPrompt = `You are a strict but fair grader. ` +
	`Respond with a single JSON object {"score": number, "explanation": string} and nothing else.`

const gradePromptTemplate = `Grade the student's answer on a scale of 0 to %d.

Question: %s
Ideal answer: %s
Student's answer: %s

Return JSON: {"score": <0-%d>, "explanation": "<one or two sentences>"}`

// QuizConfig 测验服务配置。
type QuizConfig struct {
	// MaxAttempts 生成测验的最大尝试次数，输出修复失败后重试。
	MaxAttempts int
}

// Quiz 负责测验生成与评分。
type Quiz struct {
	store        store.Store
	sampler      *Sampler
	chatProvider llm.ChatProvider
	config       *QuizConfig
}

// NewQuiz 创建测验服务实例。
func NewQuiz(st store.Store, sampler *Sampler, chatProvider llm.ChatProvider, config *QuizConfig) *Quiz {
	if config == nil {
		config = &QuizConfig{MaxAttempts: 3}
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &Quiz{
		store:        st,
		sampler:      sampler,
		chatProvider: chatProvider,
		config:       config,
	}
}

// Generate 从指定文档随机抽样上下文并生成测验。
// 形态或取值问题统一折叠为 ErrStudyQuizGeneration。
func (q *Quiz) Generate(ctx context.Context, documentIDs []string, numMCQ, numSAQ, numLAQ int) (*model.Quiz, error) {
	if len(documentIDs) == 0 {
		return nil, errors.ErrStudyInvalidRequest.WithMessage("no document ids given")
	}
	if numMCQ < 0 || numSAQ < 0 || numLAQ < 0 || numMCQ+numSAQ+numLAQ == 0 {
		return nil, errors.ErrStudyInvalidRequest.WithMessage("question counts must be non-negative and sum to at least 1")
	}

	idx, err := q.store.LoadMerged(ctx, documentIDs)
	if err != nil {
		return nil, err
	}
	if idx.Len() == 0 {
		return nil, errors.ErrStudyInvalidRequest.WithMessage("selected documents contain no content")
	}

	var lastErr error
	for attempt := 1; attempt <= q.config.MaxAttempts; attempt++ {
		contextText := q.sampler.RandomContext(idx)
		prompt := fmt.Sprintf(quizPromptTemplate, numMCQ, numSAQ, numLAQ, contextText)

		raw, err := q.chatProvider.Generate(ctx, prompt, quizSystemPrompt)
		if err != nil {
			return nil, errors.ErrStudyUpstream.WithCause(err)
		}

		quiz, err := decodeQuiz(raw)
		if err == nil {
			logger.Infow("quiz generated",
				"documents", len(documentIDs), "attempt", attempt,
				"mcqs", len(quiz.MCQs), "saqs", len(quiz.SAQs), "laqs", len(quiz.LAQs))
			return quiz, nil
		}

		lastErr = err
		logger.Warnw("quiz output rejected, retrying", "attempt", attempt, "error", err.Error())
	}

	return nil, errors.ErrStudyQuizGeneration.WithCause(lastErr)
}

// decodeQuiz 把模型输出解析、修复并解码为规范 Quiz。
func decodeQuiz(raw string) (*model.Quiz, error) {
	text, err := textutil.ExtractJSONObject(raw)
	if err != nil {
		return nil, errors.ErrStudyQuizFormat.WithCause(err)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, errors.ErrStudyQuizFormat.WithCause(err)
	}

	canonical, err := NormalizeQuiz(obj)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return nil, errors.ErrStudyQuizFormat.WithCause(err)
	}

	var quiz model.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, errors.ErrStudyQuizFormat.WithCause(err)
	}
	if quiz.MCQs == nil {
		quiz.MCQs = []model.MCQ{}
	}
	if quiz.SAQs == nil {
		quiz.SAQs = []model.SAQ{}
	}
	if quiz.LAQs == nil {
		quiz.LAQs = []model.LAQ{}
	}
	return &quiz, nil
}

// maxScoreFor 返回题型的满分。
func maxScoreFor(t model.QuestionType) float64 {
	switch t {
	case model.TypeSAQ:
		return 3
	case model.TypeLAQ:
		return 5
	default:
		return 1
	}
}

// Grade 按提交顺序逐题评分。
// 单题失败不影响整批：该题记 0 分并在说明中带上失败原因。
func (q *Quiz) Grade(ctx context.Context, items []model.GradingItem) (*model.GradeResult, error) {
	if len(items) == 0 {
		return nil, errors.ErrStudyInvalidRequest.WithMessage("no questions to grade")
	}

	result := &model.GradeResult{
		GradedQuestions: make([]model.GradedQuestion, 0, len(items)),
	}

	for _, item := range items {
		graded := q.gradeOne(ctx, item)
		result.GradedQuestions = append(result.GradedQuestions, graded)
		result.TotalScore += graded.Score
	}

	return result, nil
}

func (q *Quiz) gradeOne(ctx context.Context, item model.GradingItem) model.GradedQuestion {
	graded := model.GradedQuestion{
		Question:     item.Question,
		QuestionType: item.QuestionType,
		UserAnswer:   item.UserAnswer,
	}

	if item.QuestionType == model.TypeMCQ {
		// 客观题本地判分，不走 LLM
		if textutil.NormalizeAnswer(item.UserAnswer) == textutil.NormalizeAnswer(item.CorrectAnswer) {
			graded.Score = 1
			graded.Explanation = "Correct!"
		} else {
			graded.Score = 0
			graded.Explanation = fmt.Sprintf("Incorrect. The correct answer is: %s", item.CorrectAnswer)
		}
		return graded
	}

	maxScore := maxScoreFor(item.QuestionType)
	prompt := fmt.Sprintf(gradePromptTemplate,
		int(maxScore), item.Question, item.CorrectAnswer, item.UserAnswer, int(maxScore))

	raw, err := q.chatProvider.Generate(ctx, prompt, gradeSystemPrompt)
	if err != nil {
		graded.Score = 0
		graded.Explanation = fmt.Sprintf("Could not grade this answer: %s", err.Error())
		return graded
	}

	score, explanation, err := parseGrade(raw)
	if err != nil {
		graded.Score = 0
		graded.Explanation = fmt.Sprintf("Could not grade this answer: %s", err.Error())
		return graded
	}

	// 模型可能越界，夹到题型量程内
	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}

	graded.Score = score
	graded.Explanation = explanation
	return graded
}

// parseGrade 解析评分响应 {"score": n, "explanation": "..."}。
func parseGrade(raw string) (float64, string, error) {
	text, err := textutil.ExtractJSONObject(raw)
	if err != nil {
		return 0, "", err
	}

	var parsed struct {
		Score       float64 `json:"score"`
		Explanation string  `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return 0, "", fmt.Errorf("malformed grading response: %w", err)
	}

	explanation := strings.TrimSpace(parsed.Explanation)
	if explanation == "" {
		explanation = "No explanation provided."
	}
	return parsed.Score, explanation, nil
}
