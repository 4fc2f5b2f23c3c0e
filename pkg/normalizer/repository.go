package normalizer

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("document not found")

// DocumentModel stores one parsed document as JSON alongside the keys used
// to find it again.
type DocumentModel struct {
	ID            string         `gorm:"primaryKey;column:id"`
	IngestID      string         `gorm:"column:ingest_id;index"`
	ContentHash   string         `gorm:"column:content_hash;index"`
	ParserVersion string         `gorm:"column:parser_version"`
	Source        string         `gorm:"column:source"`
	SourceFile    string         `gorm:"column:source_file"`
	LabCount      int            `gorm:"column:lab_count"`
	AllergyCount  int            `gorm:"column:allergy_count"`
	Document      datatypes.JSON `gorm:"column:document"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
}

func (DocumentModel) TableName() string {
	return "parsed_documents"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&DocumentModel{})
}

func (r *Repository) Save(ctx context.Context, doc *DocumentModel) error {
	doc.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*DocumentModel, error) {
	var doc DocumentModel
	result := r.db.WithContext(ctx).First(&doc, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &doc, nil
}

// FindByHash returns the newest document parsed from the same text by the
// given parser version.
func (r *Repository) FindByHash(ctx context.Context, contentHash, parserVersion string) (*DocumentModel, error) {
	var doc DocumentModel
	result := r.db.WithContext(ctx).
		Where("content_hash = ? AND parser_version = ?", contentHash, parserVersion).
		Order("created_at desc").
		First(&doc)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &doc, nil
}
