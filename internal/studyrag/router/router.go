// Package router provides studyrag service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/studyrag/internal/studyrag/handler"
)

// Register registers the studyrag service routes.
func Register(engine *gin.Engine, studyHandler *handler.StudyHandler) {
	engine.GET("/healthz", studyHandler.Healthz)

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/chat", studyHandler.Chat)

		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("/generate", studyHandler.GenerateQuiz)
			quizzes.POST("/grade", studyHandler.GradeQuiz)
		}

		topics := v1.Group("/topics")
		{
			topics.POST("/generate", studyHandler.GenerateTopics)
		}

		pdfs := v1.Group("/pdfs")
		{
			pdfs.POST("/process", studyHandler.ProcessPDF)
		}
	}

	logger.Info("HTTP routes registered")
}
