// Package handler provides HTTP handlers for the studyrag service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/studyrag/internal/model"
	"github.com/kart-io/studyrag/internal/pkg/httputils"
	"github.com/kart-io/studyrag/internal/studyrag/biz"
	"github.com/kart-io/studyrag/pkg/utils/errors"
)

// StudyHandler handles study HTTP requests.
type StudyHandler struct {
	service biz.Service
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(service biz.Service) *StudyHandler {
	return &StudyHandler{service: service}
}

// ChatRequest represents a streaming question request.
type ChatRequest struct {
	Query  string   `json:"query" binding:"required"`
	PDFIDs []string `json:"pdfIds" binding:"required"`
}

// Chat 流式回答问题。
// 校验与索引加载失败走统一响应；流一旦开始，错误只记录不再改写响应。
func (h *StudyHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrStudyInvalidRequest.WithCause(err), nil)
		return
	}

	stream, err := h.service.Ask(c.Request.Context(), req.Query, req.PDFIDs)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Transfer-Encoding", "chunked")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	err = stream.Run(c.Request.Context(), func(chunk string) error {
		if _, werr := c.Writer.WriteString(chunk); werr != nil {
			return werr
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		// 响应头已发出，只能中断连接
		logger.Warnw("answer stream interrupted", "error", err.Error())
		c.Abort()
	}
}

// GenerateQuizRequest represents a quiz generation request.
type GenerateQuizRequest struct {
	PDFIDs  []string `json:"pdfIds" binding:"required"`
	NumMCQs int      `json:"numMCQs"`
	NumSAQs int      `json:"numSAQs"`
	NumLAQs int      `json:"numLAQs"`
}

// GenerateQuiz generates a quiz from the selected documents.
func (h *StudyHandler) GenerateQuiz(c *gin.Context) {
	var req GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrStudyInvalidRequest.WithCause(err), nil)
		return
	}

	quiz, err := h.service.GenerateQuiz(c.Request.Context(), req.PDFIDs, req.NumMCQs, req.NumSAQs, req.NumLAQs)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, quiz)
}

// GradeQuizRequest represents a grading request.
type GradeQuizRequest struct {
	QuestionsToGrade []model.GradingItem `json:"questionsToGrade" binding:"required"`
}

// GradeQuiz grades a batch of submitted answers.
func (h *StudyHandler) GradeQuiz(c *gin.Context) {
	var req GradeQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrStudyInvalidRequest.WithCause(err), nil)
		return
	}

	result, err := h.service.GradeQuiz(c.Request.Context(), req.QuestionsToGrade)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, result)
}

// TopicsRequest represents a topic suggestion request.
type TopicsRequest struct {
	PDFIDs []string `json:"pdfIds" binding:"required"`
}

// TopicsResponse wraps suggested topics keyed by document id.
type TopicsResponse struct {
	Topics map[string][]string `json:"topics"`
}

// GenerateTopics suggests video search topics per document.
func (h *StudyHandler) GenerateTopics(c *gin.Context) {
	var req TopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrStudyInvalidRequest.WithCause(err), nil)
		return
	}

	topics, err := h.service.SuggestTopics(c.Request.Context(), req.PDFIDs)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, TopicsResponse{Topics: topics})
}

// ProcessPDFRequest represents an ingestion request.
type ProcessPDFRequest struct {
	PDFID  string `json:"pdfId" binding:"required"`
	PDFURL string `json:"pdfUrl" binding:"required"`
}

// ProcessPDF queues a document for background ingestion and returns 202.
func (h *StudyHandler) ProcessPDF(c *gin.Context) {
	var req ProcessPDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrStudyInvalidRequest.WithCause(err), nil)
		return
	}

	if err := h.service.ProcessDocument(req.PDFID, req.PDFURL); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"pdfId":  req.PDFID,
		"status": model.StatusProcessing,
	})
}

// Healthz reports liveness.
func (h *StudyHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
