package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/studyrag/internal/model"
	"github.com/kart-io/studyrag/internal/pkg/study/pdfutil"
	"github.com/kart-io/studyrag/internal/pkg/study/textutil"
	"github.com/kart-io/studyrag/internal/studyrag/store"
	"github.com/kart-io/studyrag/pkg/llm"
	"github.com/kart-io/studyrag/pkg/utils/errors"
	"github.com/kart-io/studyrag/pkg/utils/httpclient"
)

// embedBatchSize 单次调用嵌入接口的最大文本数。
const embedBatchSize = 64

// IngestConfig 文档摄取配置。
type IngestConfig struct {
	// DataDir 下载的 PDF 存放目录。
	DataDir string
	// ChunkSize 每个文本块的字符数。
	ChunkSize int
	// ChunkOverlap 相邻文本块的重叠字符数。
	ChunkOverlap int
	// BackendURL 处理完成后回调的后端地址，为空则不回调。
	BackendURL string
	// Workers 摄取池容量。
	Workers int
	// TaskTimeout 单篇文档的处理超时。
	TaskTimeout time.Duration
}

// DefaultIngestConfig 返回默认摄取配置。
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		DataDir:      "_output/docs",
		ChunkSize:    1000,
		ChunkOverlap: 150,
		Workers:      4,
		TaskTimeout:  10 * time.Minute,
	}
}

// Ingestor 异步处理 PDF 文档：下载、提取、切块、嵌入、落盘、回调。
type Ingestor struct {
	store         store.Store
	embedProvider llm.EmbeddingProvider
	topics        *Topics
	client        *httpclient.Client
	pool          *ants.Pool
	config        *IngestConfig
	wg            sync.WaitGroup

	// 可替换的提取函数，用于测试
	extract func(path string) ([]pdfutil.PageText, error)
}

// NewIngestor 创建摄取器并启动工作池。
func NewIngestor(st store.Store, embedProvider llm.EmbeddingProvider, topics *Topics, client *httpclient.Client, config *IngestConfig) (*Ingestor, error) {
	if config == nil {
		config = DefaultIngestConfig()
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 10 * time.Minute
	}

	pool, err := ants.NewPool(config.Workers,
		ants.WithExpiryDuration(30*time.Second),
		ants.WithPanicHandler(func(p interface{}) {
			logger.Errorw("ingest worker panic recovered", "panic", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create ingest pool: %w", err)
	}

	return &Ingestor{
		store:         st,
		embedProvider: embedProvider,
		topics:        topics,
		client:        client,
		pool:          pool,
		config:        config,
		extract:       pdfutil.ExtractPages,
	}, nil
}

// Enqueue 把一篇文档排入后台处理。
// 返回 nil 表示任务已接收，处理结果通过后端回调通知。
func (g *Ingestor) Enqueue(pdfID, url string) error {
	if pdfID == "" || url == "" {
		return errors.ErrStudyInvalidRequest.WithMessage("pdf id and url are required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errors.ErrStudyInvalidURL.WithMessagef("unsupported url scheme: %s", url)
	}

	g.wg.Add(1)
	err := g.pool.Submit(func() {
		defer g.wg.Done()
		g.process(pdfID, url)
	})
	if err != nil {
		g.wg.Done()
		return errors.ErrStudyIngestFailed.WithCause(err)
	}

	logger.Infow("document queued for ingestion", "pdf_id", pdfID)
	return nil
}

// process 执行完整摄取流程，任何一步失败都以 failed 状态回调。
func (g *Ingestor) process(pdfID, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), g.config.TaskTimeout)
	defer cancel()

	start := time.Now()
	path, err := g.ingest(ctx, pdfID, url)
	if err != nil {
		logger.Warnw("document ingestion failed",
			"pdf_id", pdfID, "error", err.Error(), "elapsed", time.Since(start).String())
		g.notify(ctx, &model.StatusUpdate{PDFID: pdfID, Status: model.StatusFailed})
		return
	}

	update := &model.StatusUpdate{
		PDFID:           pdfID,
		Status:          model.StatusReady,
		VectorStorePath: path,
	}

	// 主题推荐尽力而为，失败不影响就绪状态
	if g.topics != nil {
		if suggested, terr := g.topics.Suggest(ctx, []string{pdfID}); terr == nil {
			update.YoutubeTopics = suggested[pdfID]
		}
	}

	g.notify(ctx, update)
	logger.Infow("document ingested",
		"pdf_id", pdfID, "path", path, "elapsed", time.Since(start).String())
}

func (g *Ingestor) ingest(ctx context.Context, pdfID, url string) (string, error) {
	dest := filepath.Join(g.config.DataDir, pdfID+".pdf")
	if err := pdfutil.DownloadFile(ctx, url, dest); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	// 索引落盘后原始文件不再需要，成功失败都删除
	defer g.cleanup(dest)

	pages, err := g.extract(dest)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("document %s contains no extractable text", pdfID)
	}

	chunks := make([]store.Chunk, 0, len(pages))
	for _, page := range pages {
		for _, text := range textutil.SplitIntoChunks(page.Text, g.config.ChunkSize, g.config.ChunkOverlap) {
			chunks = append(chunks, store.Chunk{
				DocumentID: pdfID,
				Page:       page.Page,
				Text:       text,
			})
		}
	}

	if err := g.embedChunks(ctx, chunks); err != nil {
		return "", fmt.Errorf("embed: %w", err)
	}

	path, err := g.store.Save(ctx, pdfID, chunks)
	if err != nil {
		return "", fmt.Errorf("save index: %w", err)
	}

	return path, nil
}

// embedChunks 分批嵌入所有文本块，结果写回 chunks。
func (g *Ingestor) embedChunks(ctx context.Context, chunks []store.Chunk) error {
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, c.Text)
		}

		embeddings, err := g.embedProvider.Embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(texts))
		}

		for j := range embeddings {
			chunks[i+j].Embedding = embeddings[j]
		}
	}
	return nil
}

// statusCallbackPath 后端状态回调接口，挂在 BackendURL 之下。
const statusCallbackPath = "/api/v1/pdfs/update-status"

// notify 把处理结果回调给后端。
func (g *Ingestor) notify(ctx context.Context, update *model.StatusUpdate) {
	if g.config.BackendURL == "" || g.client == nil {
		logger.Debugw("backend callback skipped", "pdf_id", update.PDFID, "status", update.Status)
		return
	}

	url := strings.TrimSuffix(g.config.BackendURL, "/") + statusCallbackPath
	if err := g.client.PostJSON(ctx, url, update, nil); err != nil {
		logger.Warnw("backend callback failed",
			"pdf_id", update.PDFID, "status", update.Status, "error", err.Error())
		return
	}

	logger.Infow("backend notified", "pdf_id", update.PDFID, "status", update.Status)
}

func (g *Ingestor) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnw("failed to remove downloaded file", "path", path, "error", err.Error())
	}
}

// Wait 阻塞直到所有已入队任务结束，测试与优雅退出使用。
func (g *Ingestor) Wait() {
	g.wg.Wait()
}

// Release 关闭工作池。
func (g *Ingestor) Release() {
	g.pool.Release()
	logger.Infow("ingest pool released")
}
