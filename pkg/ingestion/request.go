package ingestion

import (
	"time"

	"github.com/synaptica-ai/medrecords/pkg/common/models"
)

type RequestWrapper struct {
	Source     string            `json:"source"`
	SourceFile string            `json:"source_file,omitempty"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (r RequestWrapper) ToModel() models.IngestRequest {
	return models.IngestRequest{
		Source:     r.Source,
		SourceFile: r.SourceFile,
		Text:       r.Text,
		Timestamp:  time.Now().UTC(),
		Metadata:   r.Metadata,
	}
}
