package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/medrecords/pkg/records"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LabObservation is one lab result flattened for querying across documents.
type LabObservation struct {
	ID             string         `gorm:"primaryKey;column:id" json:"id"`
	DocumentID     string         `gorm:"column:document_id;index" json:"document_id"`
	TestName       string         `gorm:"column:test_name;index" json:"test_name"`
	Category       string         `gorm:"column:category" json:"category"`
	NumericValue   *float64       `gorm:"column:numeric_value" json:"numeric_value,omitempty"`
	RawValue       string         `gorm:"column:raw_value" json:"raw_value"`
	Units          string         `gorm:"column:units" json:"units,omitempty"`
	Flag           string         `gorm:"column:flag" json:"flag,omitempty"`
	CollectedOn    *time.Time     `gorm:"column:collected_on" json:"collected_on,omitempty"`
	Panel          string         `gorm:"column:panel" json:"panel,omitempty"`
	LOINC          string         `gorm:"column:loinc" json:"loinc,omitempty"`
	ReferenceRange datatypes.JSON `gorm:"column:reference_range" json:"reference_range,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (LabObservation) TableName() string {
	return "lab_observations"
}

// ObservationsFromDocument flattens the lab results of doc.
func ObservationsFromDocument(documentID string, doc *records.Document) []LabObservation {
	labs := doc.LaboratoryResults.AllResults
	out := make([]LabObservation, 0, len(labs))
	for _, lab := range labs {
		obs := LabObservation{
			ID:           uuid.New().String(),
			DocumentID:   documentID,
			TestName:     lab.TestName,
			Category:     lab.Category,
			NumericValue: lab.Value.Number,
			RawValue:     lab.Value.Raw,
			Units:        lab.Units,
			Flag:         string(lab.Flag),
			Panel:        lab.Panel,
		}
		if t, ok := lab.DateCollected.Time(); ok {
			obs.CollectedOn = &t
		}
		if lab.Codes != nil {
			obs.LOINC = lab.Codes.LOINC
		}
		if lab.ReferenceRange != nil {
			if encoded, err := json.Marshal(lab.ReferenceRange); err == nil {
				obs.ReferenceRange = datatypes.JSON(encoded)
			}
		}
		out = append(out, obs)
	}
	return out
}

type ObservationWriter struct {
	db *gorm.DB
}

func NewObservationWriter(db *gorm.DB) *ObservationWriter {
	return &ObservationWriter{db: db}
}

func (w *ObservationWriter) AutoMigrate() error {
	return w.db.AutoMigrate(&LabObservation{})
}

// Replace swaps the stored observations of a document for obs.
func (w *ObservationWriter) Replace(ctx context.Context, documentID string, obs []LabObservation) error {
	now := time.Now().UTC()
	for i := range obs {
		obs[i].CreatedAt = now
	}
	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&LabObservation{}).Error; err != nil {
			return fmt.Errorf("clear observations: %w", err)
		}
		if len(obs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(obs, 200).Error; err != nil {
			return fmt.Errorf("insert observations: %w", err)
		}
		return nil
	})
}

// ByTestName returns the newest observations whose test name contains name,
// case-insensitively.
func (w *ObservationWriter) ByTestName(ctx context.Context, name string, limit int) ([]LabObservation, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var rows []LabObservation
	tx := w.db.WithContext(ctx)
	if name = strings.TrimSpace(name); name != "" {
		tx = tx.Where("LOWER(test_name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if err := tx.Order("collected_on desc nulls last").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
