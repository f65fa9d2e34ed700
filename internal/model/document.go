// Package model provides data models shared by the studyrag service.
package model

// DocumentStatus 表示文档处理状态。
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// StatusUpdate is the callback payload sent to the backend when a
// document finishes (or fails) processing.
type StatusUpdate struct {
	PDFID           string         `json:"pdfId"`
	Status          DocumentStatus `json:"status"`
	VectorStorePath string         `json:"vectorStorePath,omitempty"`
	YoutubeTopics   []string       `json:"youtubeTopics,omitempty"`
}
