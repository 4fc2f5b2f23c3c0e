package models

import (
	"time"
)

// Event types carried on the record topics.
const (
	EventRecordReceived = "record.received"
	EventRecordParsed   = "record.parsed"
	EventRecordFailed   = "record.failed"
)

// Upstream data models
type IngestRequest struct {
	Source     string            `json:"source"` // ocr, pdf, upload, cli
	SourceFile string            `json:"source_file,omitempty"`
	Text       string            `json:"text"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type IngestResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ParseRequest is the unit of work handed to the normalizer, either
// directly over HTTP or unpacked from a record.received event.
type ParseRequest struct {
	IngestID   string `json:"ingest_id,omitempty"`
	Source     string `json:"source"`
	SourceFile string `json:"source_file,omitempty"`
	Text       string `json:"text"`
}

type ParseResponse struct {
	DocumentID  string      `json:"document_id"`
	ContentHash string      `json:"content_hash"`
	Cached      bool        `json:"cached"`
	Document    interface{} `json:"document"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// DLP & PHI Detection
type PHIDetectionResult struct {
	Detected   bool          `json:"detected"`
	Confidence float64       `json:"confidence"`
	PHITypes   []string      `json:"phi_types"`
	Positions  []PHIPosition `json:"positions"`
}

type PHIPosition struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
	Value string `json:"value"`
}
