package store

import (
	"context"
	"math/rand"
	"sort"

	"github.com/kart-io/studyrag/internal/pkg/study/textutil"
)

// Chunk 表示文档中一个带向量的文本块。
type Chunk struct {
	// DocumentID 所属文档 ID。
	DocumentID string `json:"document_id"`
	// Page 原始页码（从 1 开始）。
	Page int `json:"page"`
	// Text 文本内容。
	Text string `json:"text"`
	// Embedding 嵌入向量。
	Embedding []float32 `json:"embedding"`
}

// SearchResult 表示相似度检索结果。
type SearchResult struct {
	Chunk
	// Score 余弦相似度分数。
	Score float64 `json:"score"`
}

// Index 是一个内存中的块集合，可能来自单个文档，
// 也可能是多个文档索引的合并（不去重）。
type Index struct {
	chunks []Chunk
}

// NewIndex 从块集合创建索引。
func NewIndex(chunks []Chunk) *Index {
	return &Index{chunks: chunks}
}

// Len 返回块数量。
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Chunks 返回底层块集合。调用方不得修改。
func (idx *Index) Chunks() []Chunk {
	return idx.chunks
}

// Search 返回与查询向量最相似的 topK 个块，相似度降序。
// 相同索引和查询向量下结果确定（分数相等时保持块原始顺序）。
func (idx *Index) Search(embedding []float32, topK int) []SearchResult {
	if topK <= 0 || len(idx.chunks) == 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		results = append(results, SearchResult{
			Chunk: c,
			Score: textutil.CosineSimilarity(embedding, c.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK]
}

// Sample 均匀无放回地抽取 min(n, Len()) 个块。
// 有意非确定性，用于让每次生成的测验内容有所变化。
func (idx *Index) Sample(rng *rand.Rand, n int) []Chunk {
	if n <= 0 || len(idx.chunks) == 0 {
		return nil
	}
	if n >= len(idx.chunks) {
		out := make([]Chunk, len(idx.chunks))
		copy(out, idx.chunks)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	perm := rng.Perm(len(idx.chunks))
	out := make([]Chunk, n)
	for i := 0; i < n; i++ {
		out[i] = idx.chunks[perm[i]]
	}
	return out
}

// Merge 合并多个索引为一个新索引。不去重，不重排。
func Merge(indexes ...*Index) *Index {
	total := 0
	for _, idx := range indexes {
		total += idx.Len()
	}

	chunks := make([]Chunk, 0, total)
	for _, idx := range indexes {
		chunks = append(chunks, idx.chunks...)
	}
	return &Index{chunks: chunks}
}

// Store 定义文档索引的持久化接口。
type Store interface {
	// Save 原子发布文档索引，返回索引文件路径。
	Save(ctx context.Context, documentID string, chunks []Chunk) (string, error)

	// Load 加载单个文档的索引。
	// 索引不存在时返回 ErrStudyDocumentNotFound，可与 I/O 错误区分。
	Load(ctx context.Context, documentID string) (*Index, error)

	// LoadMerged 加载多个文档并合并为单个请求级索引。
	// 单个 ID 时直接返回该文档的索引。
	LoadMerged(ctx context.Context, documentIDs []string) (*Index, error)

	// Path 返回文档索引文件的路径（不检查存在性）。
	Path(documentID string) string
}
