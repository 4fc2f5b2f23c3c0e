package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/medrecords/pkg/common/logger"
	"github.com/synaptica-ai/medrecords/pkg/common/models"
	"github.com/synaptica-ai/medrecords/pkg/observability/metrics"
	"gorm.io/datatypes"
)

const serviceName = "ingestion-service"

const (
	publishAttempts     = 3
	defaultPublishDelay = 200 * time.Millisecond
)

type recordStore interface {
	Create(ctx context.Context, rec *Record) error
	SetStatus(ctx context.Context, id, status, reason string) error
	RecordFailedAttempt(ctx context.Context, id string, cause error) error
	Get(ctx context.Context, id string) (*Record, error)
	PurgeSettled(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher emits record events; *kafka.Producer satisfies it.
type Publisher interface {
	PublishEvent(ctx context.Context, key, eventType, source string, data map[string]interface{}) (string, error)
}

// Scanner reports identifiers found in submitted text.
type Scanner interface {
	Scan(text string) models.PHIDetectionResult
}

type Service struct {
	validator *Validator
	repo      recordStore
	producer  Publisher
	dlq       Publisher
	scanner   Scanner
	statusTTL time.Duration
	// publishDelay is the wait before the second attempt; it doubles after.
	publishDelay time.Duration
}

func NewService(validator *Validator, repo recordStore, producer, dlq Publisher, scanner Scanner, ttl time.Duration) *Service {
	return &Service{
		validator:    validator,
		repo:         repo,
		producer:     producer,
		dlq:          dlq,
		scanner:      scanner,
		statusTTL:    ttl,
		publishDelay: defaultPublishDelay,
	}
}

// Process validates req, records it and publishes a record.received event
// carrying the text for the normalizer.
func (s *Service) Process(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		metrics.ObserveIngest(false)
		return nil, err
	}
	metrics.ObserveIngest(true)

	id := uuid.New().String()
	record := &Record{
		ID:         id,
		Source:     req.Source,
		SourceFile: req.SourceFile,
		TextBytes:  len(req.Text),
		Metadata:   stringMap(req.Metadata),
		Status:     StatusAccepted,
	}
	if s.scanner != nil {
		if phi := s.scanner.Scan(req.Text); phi.Detected {
			encoded, _ := json.Marshal(phi.PHITypes)
			record.PHITypes = datatypes.JSON(encoded)
		}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting ingestion record: %w", err)
	}

	received := req.Timestamp
	if received.IsZero() {
		received = time.Now().UTC()
	}
	payload := map[string]interface{}{
		"ingest_id":   id,
		"source":      req.Source,
		"source_file": req.SourceFile,
		"text":        req.Text,
		"metadata":    req.Metadata,
		"received_at": received,
	}

	if sendErr := s.publish(ctx, id, payload); sendErr != nil {
		if err := s.repo.SetStatus(ctx, id, StatusFailed, sendErr.Error()); err != nil {
			logger.WithField("ingest_id", id).WithError(err).Warn("failed to mark ingestion failed")
		}
		if s.dlq != nil {
			if _, dlqErr := s.dlq.PublishEvent(ctx, id, models.EventRecordFailed, serviceName, payload); dlqErr != nil {
				logger.Log.WithError(dlqErr).Error("failed to push event to DLQ")
			}
		}
		return nil, fmt.Errorf("publishing event: %w", sendErr)
	}

	if err := s.repo.SetStatus(ctx, id, StatusPublished, ""); err != nil {
		logger.WithField("ingest_id", id).WithError(err).Warn("failed to mark ingestion published")
	}

	logger.WithFields(logrus.Fields{
		"ingest_id": id,
		"source":    req.Source,
		"bytes":     record.TextBytes,
	}).Info("record accepted")

	return &models.IngestResponse{
		ID:        id,
		Status:    StatusPublished,
		Timestamp: time.Now().UTC(),
	}, nil
}

// publish sends the record.received event, retrying with backoff. Each
// failed attempt is counted on the ingestion record.
func (s *Service) publish(ctx context.Context, id string, payload map[string]interface{}) error {
	delay := s.publishDelay
	var lastErr error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		_, err := s.producer.PublishEvent(ctx, id, models.EventRecordReceived, serviceName, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.WithFields(logrus.Fields{"ingest_id": id, "attempt": attempt}).WithError(err).Error("failed to publish ingestion event")
		if recErr := s.repo.RecordFailedAttempt(ctx, id, err); recErr != nil {
			logger.WithField("ingest_id", id).WithError(recErr).Warn("failed to record publish attempt")
		}
		if attempt == publishAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

func (s *Service) Status(ctx context.Context, id string) (*Record, error) {
	return s.repo.Get(ctx, id)
}

// Cleanup purges settled records older than the status TTL. A zero TTL
// keeps everything.
func (s *Service) Cleanup(ctx context.Context) error {
	if s.statusTTL <= 0 {
		return nil
	}
	removed, err := s.repo.PurgeSettled(ctx, time.Now().UTC().Add(-s.statusTTL))
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.WithField("removed", removed).Debug("purged settled ingestion records")
	}
	return nil
}

func stringMap(in map[string]string) datatypes.JSONMap {
	if len(in) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
