package store

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/studyrag/pkg/utils/errors"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func testChunks(docID string, n int) []Chunk {
	chunks := make([]Chunk, n)
	for i := range chunks {
		chunks[i] = Chunk{
			DocumentID: docID,
			Page:       i + 1,
			Text:       docID + " chunk",
			Embedding:  []float32{float32(i), 1, 0},
		}
	}
	return chunks
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	path, err := s.Save(ctx, "doc1", testChunks("doc1", 3))
	require.NoError(t, err)
	assert.FileExists(t, path)

	idx, err := s.Load(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, "doc1", idx.Chunks()[0].DocumentID)
}

func TestLoadMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStudyDocumentNotFound.Code),
		"missing index must map to DocumentNotFound, got %v", err)
}

func TestLoadCorruptIsNotNotFound(t *testing.T) {
	s := newTestStore(t)

	// 损坏的索引文件是内部错误，不能伪装成 404
	require.NoError(t, os.WriteFile(s.Path("bad"), []byte("not json"), 0o644))

	_, err := s.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, errors.IsCode(err, errors.ErrStudyDocumentNotFound.Code))
}

func TestSaveRejectsPathTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		_, err := s.Save(context.Background(), id, nil)
		assert.Error(t, err, "id %q should be rejected", id)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save(context.Background(), "doc1", testChunks("doc1", 2))
	require.NoError(t, err)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "doc1", testChunks("doc1", 1))
	require.NoError(t, err)
	_, err = s.Save(ctx, "doc1", testChunks("doc1", 5))
	require.NoError(t, err)

	idx, err := s.Load(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 5, idx.Len())
}

func TestLoadMerged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "doc1", testChunks("doc1", 2))
	require.NoError(t, err)
	_, err = s.Save(ctx, "doc2", testChunks("doc2", 3))
	require.NoError(t, err)

	t.Run("单文档直接返回", func(t *testing.T) {
		idx, err := s.LoadMerged(ctx, []string{"doc1"})
		require.NoError(t, err)
		assert.Equal(t, 2, idx.Len())
	})

	t.Run("多文档合并不去重", func(t *testing.T) {
		idx, err := s.LoadMerged(ctx, []string{"doc1", "doc2"})
		require.NoError(t, err)
		assert.Equal(t, 5, idx.Len())
	})

	t.Run("空列表是参数错误", func(t *testing.T) {
		_, err := s.LoadMerged(ctx, nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrStudyInvalidRequest.Code))
	})

	t.Run("任一缺失即 NotFound", func(t *testing.T) {
		_, err := s.LoadMerged(ctx, []string{"doc1", "ghost"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrStudyDocumentNotFound.Code))
	})
}

func TestMergedIndexIsNotPersisted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "doc1", testChunks("doc1", 1))
	require.NoError(t, err)
	_, err = s.Save(ctx, "doc2", testChunks("doc2", 1))
	require.NoError(t, err)

	before, err := os.ReadDir(s.dir)
	require.NoError(t, err)

	_, err = s.LoadMerged(ctx, []string{"doc1", "doc2"})
	require.NoError(t, err)

	after, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after), "merge must not write new files")
}

func TestIndexSearch(t *testing.T) {
	idx := NewIndex([]Chunk{
		{Page: 1, Text: "x axis", Embedding: []float32{1, 0, 0}},
		{Page: 2, Text: "y axis", Embedding: []float32{0, 1, 0}},
		{Page: 3, Text: "diagonal", Embedding: []float32{1, 1, 0}},
	})

	results := idx.Search([]float32{1, 0, 0}, 2)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Page)
	assert.Equal(t, 3, results[1].Page)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestIndexSearchDeterministic(t *testing.T) {
	chunks := testChunks("doc1", 20)
	idx := NewIndex(chunks)

	first := idx.Search([]float32{3, 1, 0}, 5)
	for i := 0; i < 10; i++ {
		again := idx.Search([]float32{3, 1, 0}, 5)
		assert.Equal(t, first, again)
	}
}

func TestIndexSample(t *testing.T) {
	idx := NewIndex(testChunks("doc1", 30))
	rng := rand.New(rand.NewSource(42))

	t.Run("受限于请求大小", func(t *testing.T) {
		sample := idx.Sample(rng, 15)
		assert.Len(t, sample, 15)
	})

	t.Run("无放回", func(t *testing.T) {
		sample := idx.Sample(rng, 15)
		seen := map[int]bool{}
		for _, c := range sample {
			assert.False(t, seen[c.Page], "page %d sampled twice", c.Page)
			seen[c.Page] = true
		}
	})

	t.Run("超过总量时取全部", func(t *testing.T) {
		sample := idx.Sample(rng, 100)
		assert.Len(t, sample, 30)
	})

	t.Run("空索引不崩溃", func(t *testing.T) {
		empty := NewIndex(nil)
		assert.Nil(t, empty.Sample(rng, 10))
	})
}

func TestPathLayout(t *testing.T) {
	s := newTestStore(t)
	p := s.Path("doc1")
	assert.Equal(t, "doc1.idx.json", filepath.Base(p))
}
