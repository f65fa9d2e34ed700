package biz

import (
	"strings"

	"github.com/kart-io/studyrag/pkg/utils/errors"
)

// quizGroups 规范形态的三个分组键。
var quizGroups = []string{"mcqs", "saqs", "laqs"}

// shapeMatcher 尝试把一种已知的模型输出形态修复为规范形态。
// 返回 (canonical, true) 表示匹配成功。
type shapeMatcher func(obj map[string]any) (map[string]any, bool)

// shapeMatchers 按固定优先级排列，取第一个命中的结果。
var shapeMatchers = []shapeMatcher{
	matchCanonical,
	matchNestedQuestions,
	matchTaggedQuestionList,
	matchCaseInsensitiveKeys,
}

// NormalizeQuiz 把模型返回的 JSON 对象修复为规范的
// {mcqs, saqs, laqs} 形态。没有任何形态命中时返回
// ErrStudyQuizFormat，绝不静默返回空测验。
func NormalizeQuiz(obj map[string]any) (map[string]any, error) {
	if obj == nil {
		return nil, errors.ErrStudyQuizFormat
	}

	for _, match := range shapeMatchers {
		if canonical, ok := match(obj); ok {
			return canonical, nil
		}
	}
	return nil, errors.ErrStudyQuizFormat
}

// matchCanonical 形态 1：已经是规范形态（键大小写敏感），原样返回。
func matchCanonical(obj map[string]any) (map[string]any, bool) {
	for _, key := range quizGroups {
		if _, ok := obj[key]; !ok {
			return nil, false
		}
	}
	return obj, true
}

// matchNestedQuestions 形态 2：questions 键下嵌套一个按类型命名的对象。
// 子键大小写不敏感，缺失的分组补空列表。
func matchNestedQuestions(obj map[string]any) (map[string]any, bool) {
	nested, ok := obj["questions"].(map[string]any)
	if !ok {
		return nil, false
	}

	canonical := emptyQuiz()
	for key, value := range nested {
		if group, ok := matchGroupKey(key); ok {
			if list, ok := value.([]any); ok {
				canonical[group] = list
			}
		}
	}
	return canonical, true
}

// matchTaggedQuestionList 形态 3：questions 键下是一个平铺列表，
// 每个元素带 question_type 标签，按标签分组。
func matchTaggedQuestionList(obj map[string]any) (map[string]any, bool) {
	list, ok := obj["questions"].([]any)
	if !ok {
		return nil, false
	}

	canonical := emptyQuiz()
	for _, item := range list {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tag, _ := q["question_type"].(string)
		switch strings.ToLower(strings.TrimSpace(tag)) {
		case "mcq":
			canonical["mcqs"] = append(canonical["mcqs"].([]any), q)
		case "saq":
			canonical["saqs"] = append(canonical["saqs"].([]any), q)
		case "laq":
			canonical["laqs"] = append(canonical["laqs"].([]any), q)
		}
	}
	return canonical, true
}

// matchCaseInsensitiveKeys 形态 4：顶层键大小写不敏感地匹配三个分组。
// 三个都找到才算命中，这一层不做部分补全。
func matchCaseInsensitiveKeys(obj map[string]any) (map[string]any, bool) {
	canonical := make(map[string]any, len(quizGroups))
	for key, value := range obj {
		if group, ok := matchGroupKey(key); ok {
			canonical[group] = value
		}
	}

	for _, key := range quizGroups {
		if _, ok := canonical[key]; !ok {
			return nil, false
		}
	}
	return canonical, true
}

func matchGroupKey(key string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, group := range quizGroups {
		if lower == group {
			return group, true
		}
	}
	return "", false
}

func emptyQuiz() map[string]any {
	return map[string]any{
		"mcqs": []any{},
		"saqs": []any{},
		"laqs": []any{},
	}
}
