package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/studyrag/pkg/utils/errors"
	"github.com/kart-io/studyrag/pkg/utils/json"
)

// indexFile 是索引文件的持久化格式。
type indexFile struct {
	DocumentID string  `json:"document_id"`
	Chunks     []Chunk `json:"chunks"`
}

// LocalStore 将每个文档的索引存为目录下的单个 JSON 文件。
// 发布通过临时文件加 rename 完成，读方永远看不到半成品。
type LocalStore struct {
	dir string
}

// NewLocalStore 创建本地索引存储，目录不存在时创建。
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Path 返回文档索引文件的路径。
func (s *LocalStore) Path(documentID string) string {
	return filepath.Join(s.dir, documentID+".idx.json")
}

// validateID 拒绝会逃出索引目录的文档 ID。
func validateID(documentID string) error {
	if documentID == "" {
		return errors.ErrStudyInvalidRequest.WithMessage("document id is empty")
	}
	if strings.ContainsAny(documentID, `/\`) || documentID == "." || documentID == ".." {
		return errors.ErrStudyInvalidRequest.WithMessagef("invalid document id: %s", documentID)
	}
	return nil
}

// Save 原子发布文档索引。
func (s *LocalStore) Save(ctx context.Context, documentID string, chunks []Chunk) (string, error) {
	if err := validateID(documentID); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := json.Marshal(indexFile{DocumentID: documentID, Chunks: chunks})
	if err != nil {
		return "", fmt.Errorf("failed to encode index: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, documentID+".idx.*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp index: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close index: %w", err)
	}

	final := s.Path(documentID)
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to publish index: %w", err)
	}

	logger.Infow("published document index", "document_id", documentID, "chunks", len(chunks), "path", final)
	return final, nil
}

// Load 加载单个文档的索引。
func (s *LocalStore) Load(ctx context.Context, documentID string) (*Index, error) {
	if err := validateID(documentID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(documentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrStudyDocumentNotFound.WithMessagef("document %s has no index", documentID)
		}
		return nil, fmt.Errorf("failed to read index for %s: %w", documentID, err)
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode index for %s: %w", documentID, err)
	}

	return NewIndex(f.Chunks), nil
}

// LoadMerged 加载多个文档并在内存中合并。
func (s *LocalStore) LoadMerged(ctx context.Context, documentIDs []string) (*Index, error) {
	if len(documentIDs) == 0 {
		return nil, errors.ErrStudyInvalidRequest.WithMessage("no document ids given")
	}

	if len(documentIDs) == 1 {
		return s.Load(ctx, documentIDs[0])
	}

	indexes := make([]*Index, 0, len(documentIDs))
	for _, id := range documentIDs {
		idx, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return Merge(indexes...), nil
}

var _ Store = (*LocalStore)(nil)
