package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/studyrag/internal/studyrag/biz"
	"github.com/kart-io/studyrag/internal/studyrag/handler"
	"github.com/kart-io/studyrag/internal/studyrag/router"
	"github.com/kart-io/studyrag/internal/studyrag/store"
	"github.com/kart-io/studyrag/pkg/llm"
	"github.com/kart-io/studyrag/pkg/utils/errors"
	"github.com/kart-io/studyrag/pkg/utils/httpclient"
	"github.com/kart-io/studyrag/pkg/utils/json"
)

type stubEmbed struct{}

func (stubEmbed) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (s stubEmbed) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (stubEmbed) Name() string { return "stub-embed" }

type stubChat struct {
	response string
	chunks   []string
	err      error
}

func (s *stubChat) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return s.response, s.err
}

func (s *stubChat) Generate(_ context.Context, _, _ string) (string, error) {
	return s.response, s.err
}

func (s *stubChat) Stream(_ context.Context, _, _ string, fn llm.StreamHandler) error {
	if s.err != nil {
		return s.err
	}
	for _, chunk := range s.chunks {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubChat) Name() string { return "stub-chat" }

func newTestRouter(t *testing.T, chat *stubChat) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = st.Save(context.Background(), "doc-1", []store.Chunk{
		{DocumentID: "doc-1", Page: 1, Text: "万有引力使行星保持轨道", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	service, err := biz.NewStudyService(st, stubEmbed{}, chat, nil,
		httpclient.NewClient(time.Second, 0), &biz.ServiceConfig{
			IngestConfig: &biz.IngestConfig{DataDir: t.TempDir(), ChunkSize: 1000, ChunkOverlap: 150, Workers: 1, TaskTimeout: time.Second},
		})
	require.NoError(t, err)
	t.Cleanup(service.Close)

	engine := gin.New()
	router.Register(engine, handler.NewStudyHandler(service))
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestChatStreamsPlainText(t *testing.T) {
	engine := newTestRouter(t, &stubChat{chunks: []string{"Gravity ", "keeps ", "planets in orbit."}})

	w := postJSON(t, engine, "/api/v1/chat", map[string]any{
		"query": "why do planets orbit?", "pdfIds": []string{"doc-1"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Gravity keeps planets in orbit.", w.Body.String())
}

func TestChatUnknownDocumentIs404(t *testing.T) {
	engine := newTestRouter(t, &stubChat{})

	w := postJSON(t, engine, "/api/v1/chat", map[string]any{
		"query": "q", "pdfIds": []string{"ghost"},
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errors.ErrStudyDocumentNotFound.Code, resp.Code)
}

func TestChatMalformedBodyIs400(t *testing.T) {
	engine := newTestRouter(t, &stubChat{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateQuiz(t *testing.T) {
	quizJSON := `{"mcqs": [{"question": "Q", "options": ["a", "b", "c", "d"], "answer": "a"}], "saqs": [], "laqs": []}`
	engine := newTestRouter(t, &stubChat{response: quizJSON})

	w := postJSON(t, engine, "/api/v1/quizzes/generate", map[string]any{
		"pdfIds": []string{"doc-1"}, "numMCQs": 1,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			MCQs []struct {
				Question string `json:"question"`
			} `json:"mcqs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.MCQs, 1)
	assert.Equal(t, "Q", resp.Data.MCQs[0].Question)
}

func TestGenerateQuizUpstreamFailureIs502(t *testing.T) {
	engine := newTestRouter(t, &stubChat{err: fmt.Errorf("model down")})

	w := postJSON(t, engine, "/api/v1/quizzes/generate", map[string]any{
		"pdfIds": []string{"doc-1"}, "numMCQs": 1,
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGradeQuiz(t *testing.T) {
	engine := newTestRouter(t, &stubChat{})

	w := postJSON(t, engine, "/api/v1/quizzes/grade", map[string]any{
		"questionsToGrade": []map[string]any{
			{"question": "Q", "questionType": "mcq", "correctAnswer": "Paris", "userAnswer": "paris"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			GradedQuestions []struct {
				Score float64 `json:"score"`
			} `json:"gradedQuestions"`
			TotalScore float64 `json:"totalScore"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.GradedQuestions, 1)
	assert.Equal(t, 1.0, resp.Data.GradedQuestions[0].Score)
	assert.Equal(t, 1.0, resp.Data.TotalScore)
}

func TestGenerateTopics(t *testing.T) {
	engine := newTestRouter(t, &stubChat{response: `["gravity explained", "orbital mechanics"]`})

	w := postJSON(t, engine, "/api/v1/topics/generate", map[string]any{
		"pdfIds": []string{"doc-1"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Topics map[string][]string `json:"topics"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"gravity explained", "orbital mechanics"}, resp.Data.Topics["doc-1"])
}

func TestProcessPDFAccepted(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer source.Close()

	engine := newTestRouter(t, &stubChat{})

	w := postJSON(t, engine, "/api/v1/pdfs/process", map[string]any{
		"pdfId": "doc-9", "pdfUrl": source.URL,
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp["status"])
}

func TestHealthz(t *testing.T) {
	engine := newTestRouter(t, &stubChat{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
