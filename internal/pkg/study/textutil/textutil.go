// Package textutil 提供检索与生成相关的文本处理工具函数。
package textutil

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kart-io/studyrag/pkg/utils/json"
)

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，1 表示完全相同，-1 表示完全相反。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// SplitIntoChunks 将文本分割成重叠的块。
// chunkSize 是每个块的大小（Unicode 字符数），overlap 是块之间的重叠大小。
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	step := chunkSize - overlap

	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// StripCodeFences 移除模型输出中的 Markdown 代码围栏。
// 处理 ```json ... ``` 和裸 ``` 两种形式。
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// 围栏后可能跟语言标记，如 json
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject 从文本中提取最外层的 JSON 对象子串。
// 模型经常在 JSON 前后加说明文字，这里取第一个 '{' 到最后一个 '}'。
func ExtractJSONObject(s string) (string, error) {
	s = StripCodeFences(s)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("未找到 JSON 对象")
	}
	return s[start : end+1], nil
}

// ParseJSONArray 从文本中提取并解析 JSON 字符串数组。
func ParseJSONArray(s string) ([]string, error) {
	s = StripCodeFences(s)
	re := regexp.MustCompile(`\[[\s\S]*\]`)
	match := re.FindString(s)
	if match == "" {
		return nil, fmt.Errorf("未找到 JSON 数组")
	}

	var result []string
	if err := json.Unmarshal([]byte(match), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SplitByLines 按行分割文本，移除列表标记和空行。
// 仅返回长度大于 minLen 的行。
func SplitByLines(s string, minLen int) []string {
	if minLen <= 0 {
		minLen = 5
	}

	var result []string
	lines := strings.Split(s, "\n")
	listMarkerRegex := regexp.MustCompile(`^[\d\.\-\*\)]+\s*`)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		// 移除列表标记
		line = listMarkerRegex.ReplaceAllString(line, "")
		line = strings.Trim(line, `"'`)
		if line != "" && len(line) > minLen {
			result = append(result, line)
		}
	}
	return result
}

// NormalizeAnswer 归一化答案用于精确比较：去首尾空白并转小写。
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
