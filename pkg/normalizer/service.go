package normalizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/medrecords/pkg/common/logger"
	"github.com/synaptica-ai/medrecords/pkg/common/models"
	"github.com/synaptica-ai/medrecords/pkg/observability/metrics"
	"github.com/synaptica-ai/medrecords/pkg/records"
	"github.com/synaptica-ai/medrecords/pkg/storage"
	"gorm.io/datatypes"
)

const serviceName = "normalizer-service"

var ErrEmptyText = errors.New("record text is empty")

type documentStore interface {
	Save(ctx context.Context, doc *DocumentModel) error
	Get(ctx context.Context, id string) (*DocumentModel, error)
	FindByHash(ctx context.Context, contentHash, parserVersion string) (*DocumentModel, error)
}

type documentCache interface {
	Get(ctx context.Context, contentHash, parserVersion string) ([]byte, bool, error)
	Set(ctx context.Context, contentHash, parserVersion string, payload []byte) error
}

type observationStore interface {
	Replace(ctx context.Context, documentID string, obs []storage.LabObservation) error
	ByTestName(ctx context.Context, name string, limit int) ([]storage.LabObservation, error)
}

type publisher interface {
	PublishEvent(ctx context.Context, key, eventType, source string, data map[string]interface{}) (string, error)
}

type deliverer interface {
	Deliver(ctx context.Context, documentID string, payload []byte) error
}

// Redactor masks identifiers in free text.
type Redactor interface {
	MaskText(text string) string
	MaskAll(items []string) int
}

// Dependencies are optional except Pipeline and Documents.
type Dependencies struct {
	Pipeline     *records.Pipeline
	Documents    documentStore
	Cache        documentCache
	Observations observationStore
	Publisher    publisher
	Delivery     deliverer
	Redactor     Redactor
}

type Service struct {
	deps          Dependencies
	parserVersion string
}

func NewService(deps Dependencies, parserVersion string) *Service {
	if parserVersion == "" {
		parserVersion = records.DefaultParserVersion
	}
	return &Service{deps: deps, parserVersion: parserVersion}
}

// cachedDocument is the payload kept in the document cache.
type cachedDocument struct {
	DocumentID string          `json:"document_id"`
	Document   json.RawMessage `json:"document"`
}

// ContentHash is the hex SHA-256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Process parses req.Text unless the same text was already parsed by this
// parser version, in which case the stored document is returned.
func (s *Service) Process(ctx context.Context, req models.ParseRequest) (*models.ParseResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	hash := ContentHash(req.Text)
	log := logger.WithFields(logrus.Fields{
		"content_hash": hash,
		"ingest_id":    req.IngestID,
		"source":       req.Source,
	})

	if resp := s.lookup(ctx, hash, log); resp != nil {
		metrics.ObserveCacheHit()
		return resp, nil
	}

	start := time.Now()
	doc := s.deps.Pipeline.WithSource(sourceName(req)).Parse(req.Text)
	if s.deps.Redactor != nil {
		metrics.ObserveRedactions(redactNotes(doc, s.deps.Redactor))
	}
	metrics.ObserveParse(time.Since(start), doc.LaboratoryResults.TotalCount, doc.Allergies.TotalTested)

	encoded, err := json.Marshal(doc)
	if err != nil {
		metrics.ObserveParseFailure()
		return nil, fmt.Errorf("encode document: %w", err)
	}

	model := &DocumentModel{
		ID:            uuid.New().String(),
		IngestID:      req.IngestID,
		ContentHash:   hash,
		ParserVersion: s.parserVersion,
		Source:        req.Source,
		SourceFile:    req.SourceFile,
		LabCount:      doc.LaboratoryResults.TotalCount,
		AllergyCount:  doc.Allergies.TotalTested,
		Document:      datatypes.JSON(encoded),
	}
	if err := s.deps.Documents.Save(ctx, model); err != nil {
		metrics.ObserveParseFailure()
		return nil, fmt.Errorf("persist document: %w", err)
	}
	log = log.WithField("document_id", model.ID)

	if s.deps.Observations != nil {
		if err := s.deps.Observations.Replace(ctx, model.ID, storage.ObservationsFromDocument(model.ID, doc)); err != nil {
			log.WithError(err).Warn("failed to write lab observations")
		}
	}

	if s.deps.Cache != nil {
		payload, _ := json.Marshal(cachedDocument{DocumentID: model.ID, Document: encoded})
		if err := s.deps.Cache.Set(ctx, hash, s.parserVersion, payload); err != nil {
			log.WithError(err).Warn("failed to cache document")
		}
	}

	if s.deps.Publisher != nil {
		event := map[string]interface{}{
			"document_id":    model.ID,
			"ingest_id":      req.IngestID,
			"content_hash":   hash,
			"parser_version": s.parserVersion,
			"lab_count":      model.LabCount,
			"allergy_count":  model.AllergyCount,
			"total_pages":    doc.Metadata.TotalPages,
		}
		if _, err := s.deps.Publisher.PublishEvent(ctx, model.ID, models.EventRecordParsed, serviceName, event); err != nil {
			log.WithError(err).Error("failed to publish parsed event")
		}
	}

	if s.deps.Delivery != nil {
		if err := s.deps.Delivery.Deliver(ctx, model.ID, encoded); err != nil {
			metrics.ObserveDeliveryFailure()
		}
	}

	log.WithFields(logrus.Fields{
		"labs":      model.LabCount,
		"allergies": model.AllergyCount,
		"pages":     doc.Metadata.TotalPages,
	}).Info("document parsed")

	return &models.ParseResponse{
		DocumentID:  model.ID,
		ContentHash: hash,
		Document:    json.RawMessage(encoded),
	}, nil
}

// lookup checks the cache, then the database. Lookup failures are logged and
// treated as misses.
func (s *Service) lookup(ctx context.Context, hash string, log *logrus.Entry) *models.ParseResponse {
	if s.deps.Cache != nil {
		payload, ok, err := s.deps.Cache.Get(ctx, hash, s.parserVersion)
		if err != nil {
			log.WithError(err).Warn("document cache unavailable")
		}
		var cached cachedDocument
		if ok && json.Unmarshal(payload, &cached) == nil && cached.DocumentID != "" {
			return &models.ParseResponse{DocumentID: cached.DocumentID, ContentHash: hash, Cached: true, Document: cached.Document}
		}
	}

	stored, err := s.deps.Documents.FindByHash(ctx, hash, s.parserVersion)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.WithError(err).Warn("document lookup failed")
		}
		return nil
	}
	return &models.ParseResponse{
		DocumentID:  stored.ID,
		ContentHash: hash,
		Cached:      true,
		Document:    json.RawMessage(stored.Document),
	}
}

// Document returns the stored JSON of a parsed document.
func (s *Service) Document(ctx context.Context, id string) (json.RawMessage, error) {
	doc, err := s.deps.Documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(doc.Document), nil
}

func (s *Service) Observations(ctx context.Context, testName string, limit int) ([]storage.LabObservation, error) {
	if s.deps.Observations == nil {
		return []storage.LabObservation{}, nil
	}
	return s.deps.Observations.ByTestName(ctx, testName, limit)
}

// HandleEvent parses the text carried by a record.received event. Other
// event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != models.EventRecordReceived {
		return nil
	}
	req := models.ParseRequest{
		IngestID:   stringField(event.Data, "ingest_id"),
		Source:     stringField(event.Data, "source"),
		SourceFile: stringField(event.Data, "source_file"),
		Text:       stringField(event.Data, "text"),
	}
	if req.Text == "" {
		return fmt.Errorf("event %s: %w", event.ID, ErrEmptyText)
	}
	_, err := s.Process(ctx, req)
	return err
}

// redactNotes masks clinical note narrative in place and returns the number
// of fields changed.
func redactNotes(doc *records.Document, r Redactor) int {
	changed := 0
	for i := range doc.ClinicalNotes {
		note := &doc.ClinicalNotes[i]
		if masked := r.MaskText(note.Content); masked != note.Content {
			note.Content = masked
			changed++
		}
		changed += r.MaskAll(note.Items)
	}
	return changed
}

func sourceName(req models.ParseRequest) string {
	if req.SourceFile != "" {
		return req.SourceFile
	}
	return req.Source
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
