// Package study provides configuration options for the study pipeline:
// chunking, retrieval, quiz generation and backend callbacks.
package study

import (
	"fmt"

	"github.com/kart-io/studyrag/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains study pipeline configuration.
type Options struct {
	// IndexDir is the directory holding per-document vector indexes.
	IndexDir string `json:"index-dir" mapstructure:"index-dir"`

	// DataDir is the directory for downloaded documents.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// ChunkSize is the size of text chunks in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of chunks retrieved per question.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// SampleSize caps the number of chunks sampled for quiz and topic prompts.
	SampleSize int `json:"sample-size" mapstructure:"sample-size"`

	// TopicsPerDoc is the number of topics suggested per document.
	TopicsPerDoc int `json:"topics-per-doc" mapstructure:"topics-per-doc"`

	// QuizMaxAttempts 生成测验时模型输出修复失败后的最大重试次数。
	QuizMaxAttempts int `json:"quiz-max-attempts" mapstructure:"quiz-max-attempts"`

	// BackendURL is the base URL of the backend that receives
	// processing status callbacks. Empty disables callbacks.
	BackendURL string `json:"backend-url" mapstructure:"backend-url"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		IndexDir:        "_output/indexes",
		DataDir:         "_output/docs",
		ChunkSize:       1000,
		ChunkOverlap:    150,
		TopK:            4,
		SampleSize:      15,
		TopicsPerDoc:    2,
		QuizMaxAttempts: 3,
	}
}

// AddFlags adds flags for study options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.IndexDir, options.Join(prefixes...)+"study.index-dir", o.IndexDir, "Directory holding per-document vector indexes.")
	fs.StringVar(&o.DataDir, options.Join(prefixes...)+"study.data-dir", o.DataDir, "Directory for downloaded documents.")
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"study.chunk-size", o.ChunkSize, "Size of text chunks in characters.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"study.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"study.top-k", o.TopK, "Number of chunks retrieved per question.")
	fs.IntVar(&o.SampleSize, options.Join(prefixes...)+"study.sample-size", o.SampleSize, "Maximum chunks sampled for quiz and topic prompts.")
	fs.IntVar(&o.TopicsPerDoc, options.Join(prefixes...)+"study.topics-per-doc", o.TopicsPerDoc, "Number of topics suggested per document.")
	fs.IntVar(&o.QuizMaxAttempts, options.Join(prefixes...)+"study.quiz-max-attempts", o.QuizMaxAttempts, "Maximum quiz generation attempts.")
	fs.StringVar(&o.BackendURL, options.Join(prefixes...)+"study.backend-url", o.BackendURL, "Backend base URL for status callbacks.")
}

// Validate validates the study options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.IndexDir == "" {
		errs = append(errs, fmt.Errorf("index-dir is required"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.SampleSize <= 0 {
		errs = append(errs, fmt.Errorf("sample-size must be positive"))
	}
	return errs
}

// Complete completes the study options with defaults.
func (o *Options) Complete() error {
	if o.DataDir == "" {
		o.DataDir = "_output/docs"
	}
	if o.TopicsPerDoc <= 0 {
		o.TopicsPerDoc = 2
	}
	if o.QuizMaxAttempts <= 0 {
		o.QuizMaxAttempts = 3
	}
	return nil
}
