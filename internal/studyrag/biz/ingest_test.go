package biz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/studyrag/internal/model"
	"github.com/kart-io/studyrag/internal/pkg/study/pdfutil"
	"github.com/kart-io/studyrag/internal/studyrag/store"
	"github.com/kart-io/studyrag/pkg/utils/errors"
	"github.com/kart-io/studyrag/pkg/utils/httpclient"
	"github.com/kart-io/studyrag/pkg/utils/json"
)

// callbackRecorder 记录后端收到的状态回调。
type callbackRecorder struct {
	mu      sync.Mutex
	updates []model.StatusUpdate
	paths   []string
}

func (r *callbackRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var update model.StatusUpdate
		if err := json.NewDecoder(req.Body).Decode(&update); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.mu.Lock()
		r.updates = append(r.updates, update)
		r.paths = append(r.paths, req.URL.Path)
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (r *callbackRecorder) lastPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}

func (r *callbackRecorder) wait(t *testing.T) model.StatusUpdate {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if len(r.updates) > 0 {
			update := r.updates[0]
			r.mu.Unlock()
			return update
		}
		r.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no backend callback received")
	return model.StatusUpdate{}
}

func newIngestFixture(t *testing.T, backend string, chat *fakeChatProvider) (*Ingestor, *store.LocalStore) {
	t.Helper()

	st, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	embed := &fakeEmbedProvider{}
	sampler := NewSampler(embed, nil)
	topics := NewTopics(st, sampler, chat, nil, nil)

	ingestor, err := NewIngestor(st, embed, topics, httpclient.NewClient(5*time.Second, 1), &IngestConfig{
		DataDir:      t.TempDir(),
		ChunkSize:    1000,
		ChunkOverlap: 150,
		BackendURL:   backend,
		Workers:      2,
		TaskTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(ingestor.Release)

	ingestor.extract = func(path string) ([]pdfutil.PageText, error) {
		return []pdfutil.PageText{
			{Page: 1, Text: "细胞是生命的基本单位"},
			{Page: 2, Text: "线粒体负责能量代谢"},
		}, nil
	}
	return ingestor, st
}

func TestIngestorHappyPath(t *testing.T) {
	recorder := &callbackRecorder{}
	backend := httptest.NewServer(recorder.handler())
	defer backend.Close()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer source.Close()

	chat := &fakeChatProvider{responses: []string{`["cell biology basics", "mitochondria explained"]`}}
	ingestor, st := newIngestFixture(t, backend.URL, chat)

	require.NoError(t, ingestor.Enqueue("doc-1", source.URL))
	ingestor.Wait()

	update := recorder.wait(t)
	assert.Equal(t, "/api/v1/pdfs/update-status", recorder.lastPath())
	assert.Equal(t, "doc-1", update.PDFID)
	assert.Equal(t, model.StatusReady, update.Status)
	assert.Equal(t, st.Path("doc-1"), update.VectorStorePath)
	assert.Equal(t, []string{"cell biology basics", "mitochondria explained"}, update.YoutubeTopics)

	idx, err := st.Load(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	for _, chunk := range idx.Chunks() {
		assert.NotEmpty(t, chunk.Embedding)
	}
}

func TestIngestorDownloadFailurePublishesNothing(t *testing.T) {
	recorder := &callbackRecorder{}
	backend := httptest.NewServer(recorder.handler())
	defer backend.Close()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer source.Close()

	ingestor, st := newIngestFixture(t, backend.URL, &fakeChatProvider{})

	require.NoError(t, ingestor.Enqueue("doc-2", source.URL))
	ingestor.Wait()

	update := recorder.wait(t)
	assert.Equal(t, model.StatusFailed, update.Status)
	assert.Empty(t, update.VectorStorePath)

	_, err := st.Load(context.Background(), "doc-2")
	assert.True(t, errors.IsCode(err, errors.ErrStudyDocumentNotFound.Code))
}

func TestIngestorExtractFailureNotifiesFailed(t *testing.T) {
	recorder := &callbackRecorder{}
	backend := httptest.NewServer(recorder.handler())
	defer backend.Close()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a pdf"))
	}))
	defer source.Close()

	ingestor, _ := newIngestFixture(t, backend.URL, &fakeChatProvider{})
	ingestor.extract = func(path string) ([]pdfutil.PageText, error) {
		return nil, fmt.Errorf("corrupt document")
	}

	require.NoError(t, ingestor.Enqueue("doc-3", source.URL))
	ingestor.Wait()

	update := recorder.wait(t)
	assert.Equal(t, model.StatusFailed, update.Status)
}

func TestIngestorTopicFailureStillReady(t *testing.T) {
	recorder := &callbackRecorder{}
	backend := httptest.NewServer(recorder.handler())
	defer backend.Close()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer source.Close()

	chat := &fakeChatProvider{errs: []error{fmt.Errorf("model down")}, responses: []string{""}}
	ingestor, _ := newIngestFixture(t, backend.URL, chat)

	require.NoError(t, ingestor.Enqueue("doc-4", source.URL))
	ingestor.Wait()

	update := recorder.wait(t)
	assert.Equal(t, model.StatusReady, update.Status)
	assert.Empty(t, update.YoutubeTopics)
}

func TestIngestorRejectsEmptyArgs(t *testing.T) {
	ingestor, _ := newIngestFixture(t, "", &fakeChatProvider{})

	err := ingestor.Enqueue("", "http://example.com/a.pdf")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStudyInvalidRequest.Code))

	err = ingestor.Enqueue("doc-5", "")
	require.Error(t, err)

	err = ingestor.Enqueue("doc-5", "ftp://example.com/a.pdf")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStudyInvalidURL.Code))
}

func TestIngestorRemovesDownloadedFile(t *testing.T) {
	recorder := &callbackRecorder{}
	backend := httptest.NewServer(recorder.handler())
	defer backend.Close()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer source.Close()

	ingestor, _ := newIngestFixture(t, backend.URL, &fakeChatProvider{responses: []string{`["t1", "t2"]`}})

	require.NoError(t, ingestor.Enqueue("doc-6", source.URL))
	ingestor.Wait()

	update := recorder.wait(t)
	assert.Equal(t, model.StatusReady, update.Status)
	assert.False(t, pdfutil.FileExists(filepath.Join(ingestor.config.DataDir, "doc-6.pdf")))
}
