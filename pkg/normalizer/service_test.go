package normalizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/medrecords/pkg/common/models"
	"github.com/synaptica-ai/medrecords/pkg/dlp"
	"github.com/synaptica-ai/medrecords/pkg/records"
	"github.com/synaptica-ai/medrecords/pkg/storage"
)

const labText = "Date Collected: 01/15/2020\nWBC 01 6.5 x10E3/uL 3.4-10.8\n"

type memoryDocuments struct {
	mu   sync.Mutex
	docs map[string]*DocumentModel
}

func (m *memoryDocuments) Save(_ context.Context, doc *DocumentModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *memoryDocuments) Get(_ context.Context, id string) (*DocumentModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.docs[id]; ok {
		return doc, nil
	}
	return nil, ErrNotFound
}

func (m *memoryDocuments) FindByHash(_ context.Context, hash, version string) (*DocumentModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if doc.ContentHash == hash && doc.ParserVersion == version {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

type memoryCache struct {
	entries map[string][]byte
	err     error
}

func (c *memoryCache) Get(_ context.Context, hash, version string) ([]byte, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	data, ok := c.entries[storage.DocumentKey(hash, version)]
	return data, ok, nil
}

func (c *memoryCache) Set(_ context.Context, hash, version string, payload []byte) error {
	c.entries[storage.DocumentKey(hash, version)] = payload
	return nil
}

type memoryObservations struct {
	byDocument map[string][]storage.LabObservation
}

func (m *memoryObservations) Replace(_ context.Context, id string, obs []storage.LabObservation) error {
	m.byDocument[id] = obs
	return nil
}

func (m *memoryObservations) ByTestName(_ context.Context, name string, _ int) ([]storage.LabObservation, error) {
	var out []storage.LabObservation
	for _, rows := range m.byDocument {
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.TestName), strings.ToLower(name)) {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

type recordingPublisher struct {
	types []string
	data  []map[string]interface{}
}

func (p *recordingPublisher) PublishEvent(_ context.Context, key, eventType, _ string, data map[string]interface{}) (string, error) {
	p.types = append(p.types, eventType)
	p.data = append(p.data, data)
	return key, nil
}

type recordingDelivery struct {
	ids []string
	err error
}

func (d *recordingDelivery) Deliver(_ context.Context, id string, _ []byte) error {
	d.ids = append(d.ids, id)
	return d.err
}

type fixture struct {
	svc          *Service
	docs         *memoryDocuments
	cache        *memoryCache
	observations *memoryObservations
	publisher    *recordingPublisher
	delivery     *recordingDelivery
}

func newFixture(t *testing.T, redactor Redactor) *fixture {
	t.Helper()
	f := &fixture{
		docs:         &memoryDocuments{docs: make(map[string]*DocumentModel)},
		cache:        &memoryCache{entries: make(map[string][]byte)},
		observations: &memoryObservations{byDocument: make(map[string][]storage.LabObservation)},
		publisher:    &recordingPublisher{},
		delivery:     &recordingDelivery{},
	}
	f.svc = NewService(Dependencies{
		Pipeline:     records.New(records.Options{}),
		Documents:    f.docs,
		Cache:        f.cache,
		Observations: f.observations,
		Publisher:    f.publisher,
		Delivery:     f.delivery,
		Redactor:     redactor,
	}, "")
	return f
}

func decodeDocument(t *testing.T, resp *models.ParseResponse) records.Document {
	t.Helper()
	raw, ok := resp.Document.(json.RawMessage)
	if !ok {
		t.Fatalf("unexpected document type %T", resp.Document)
	}
	var doc records.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return doc
}

func TestProcessParsesAndFansOut(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Process(context.Background(), models.ParseRequest{IngestID: "ing-1", Source: "ocr", SourceFile: "scan.txt", Text: labText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.Cached || resp.ContentHash != ContentHash(labText) {
		t.Fatalf("unexpected response %+v", resp)
	}

	doc := decodeDocument(t, resp)
	if doc.LaboratoryResults.TotalCount != 1 || doc.Metadata.SourceFile != "scan.txt" {
		t.Fatalf("unexpected document %+v", doc.Metadata)
	}

	stored := f.docs.docs[resp.DocumentID]
	if stored == nil || stored.IngestID != "ing-1" || stored.LabCount != 1 || stored.ParserVersion != records.DefaultParserVersion {
		t.Fatalf("unexpected stored document %+v", stored)
	}
	if obs := f.observations.byDocument[resp.DocumentID]; len(obs) != 1 || obs[0].TestName != "WBC" {
		t.Fatalf("unexpected observations %+v", obs)
	}
	if _, ok := f.cache.entries[storage.DocumentKey(resp.ContentHash, records.DefaultParserVersion)]; !ok {
		t.Fatal("document was not cached")
	}
	if len(f.publisher.types) != 1 || f.publisher.types[0] != models.EventRecordParsed {
		t.Fatalf("unexpected events %v", f.publisher.types)
	}
	if f.publisher.data[0]["document_id"] != resp.DocumentID {
		t.Fatalf("unexpected event payload %v", f.publisher.data[0])
	}
	if len(f.delivery.ids) != 1 || f.delivery.ids[0] != resp.DocumentID {
		t.Fatalf("unexpected deliveries %v", f.delivery.ids)
	}
}

func TestProcessReturnsCachedDocument(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.svc.Process(context.Background(), models.ParseRequest{Source: "ocr", Text: labText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	second, err := f.svc.Process(context.Background(), models.ParseRequest{Source: "ocr", Text: labText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !second.Cached || second.DocumentID != first.DocumentID {
		t.Fatalf("expected cached response for %s, got %+v", first.DocumentID, second)
	}
	if len(f.docs.docs) != 1 || len(f.publisher.types) != 1 {
		t.Fatal("cached request must not store or publish again")
	}
}

func TestProcessReparsesAfterParserUpgrade(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.svc.Process(context.Background(), models.ParseRequest{Source: "ocr", Text: labText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	upgraded := NewService(f.svc.deps, "9.0.0")
	second, err := upgraded.Process(context.Background(), models.ParseRequest{Source: "ocr", Text: labText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if second.Cached || second.DocumentID == first.DocumentID {
		t.Fatalf("new parser version must not reuse %s, got %+v", first.DocumentID, second)
	}
	if len(f.cache.entries) != 2 {
		t.Fatalf("expected one cache entry per parser version, got %d", len(f.cache.entries))
	}
	if stored := f.docs.docs[second.DocumentID]; stored == nil || stored.ParserVersion != "9.0.0" {
		t.Fatalf("unexpected stored document %+v", stored)
	}
}

func TestProcessFallsBackToStoredDocument(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.svc.Process(context.Background(), models.ParseRequest{Source: "ocr", Text: labText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	f.cache.entries = make(map[string][]byte)
	f.cache.err = errors.New("redis down")
	second, err := f.svc.Process(context.Background(), models.ParseRequest{Source: "ocr", Text: labText})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !second.Cached || second.DocumentID != first.DocumentID {
		t.Fatalf("expected stored document, got %+v", second)
	}
}

func TestProcessKeepsDocumentWhenDeliveryFails(t *testing.T) {
	f := newFixture(t, nil)
	f.delivery.err = errors.New("downstream unavailable")
	resp, err := f.svc.Process(context.Background(), models.ParseRequest{Source: "ocr", Text: labText})
	if err != nil {
		t.Fatalf("delivery failure must not fail the request: %v", err)
	}
	if f.docs.docs[resp.DocumentID] == nil {
		t.Fatal("document not stored")
	}
}

func TestProcessRejectsEmptyText(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.Process(context.Background(), models.ParseRequest{Source: "ocr", Text: " \n"}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestRedactNotes(t *testing.T) {
	detector, err := dlp.NewDetector(dlp.DefaultRules())
	if err != nil {
		t.Fatalf("detector: %v", err)
	}
	doc := &records.Document{ClinicalNotes: []records.ClinicalNote{
		{Type: "referral_summary", Content: "Call patient at 555-123-4567 before visit."},
		{Type: "working_hypotheses", Items: []string{"SSN 123-45-6789 on file", "Seronegative arthritis"}},
	}}

	if changed := redactNotes(doc, detector); changed != 2 {
		t.Fatalf("expected two redacted fields, got %d", changed)
	}
	if strings.Contains(doc.ClinicalNotes[0].Content, "555-123-4567") {
		t.Fatalf("phone not masked: %s", doc.ClinicalNotes[0].Content)
	}
	if doc.ClinicalNotes[1].Items[1] != "Seronegative arthritis" {
		t.Fatalf("clean item changed: %s", doc.ClinicalNotes[1].Items[1])
	}
}

func TestHandleEvent(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.svc.HandleEvent(context.Background(), models.Event{Type: "other"}); err != nil {
		t.Fatalf("unrelated events are ignored: %v", err)
	}
	if err := f.svc.HandleEvent(context.Background(), models.Event{ID: "e1", Type: models.EventRecordReceived, Data: map[string]interface{}{}}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}

	err := f.svc.HandleEvent(context.Background(), models.Event{
		ID:   "e2",
		Type: models.EventRecordReceived,
		Data: map[string]interface{}{"ingest_id": "ing-9", "source": "pdf", "text": labText},
	})
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(f.docs.docs) != 1 {
		t.Fatalf("expected one stored document, got %d", len(f.docs.docs))
	}
	for _, doc := range f.docs.docs {
		if doc.IngestID != "ing-9" || doc.Source != "pdf" {
			t.Fatalf("unexpected stored document %+v", doc)
		}
	}
}

func TestHTTPHandler(t *testing.T) {
	f := newFixture(t, nil)
	router := mux.NewRouter()
	NewHTTPHandler(f.svc).Register(router.PathPrefix("/api/v1").Subrouter())

	body, _ := json.Marshal(models.ParseRequest{Source: "upload", Text: labText})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/normalize", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		DocumentID string           `json:"document_id"`
		Document   records.Document `json:"document"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Document.LaboratoryResults.TotalCount != 1 {
		t.Fatalf("unexpected document in response")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+resp.DocumentID, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"laboratory_results"`) {
		t.Fatalf("unexpected document response %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/observations?test_name=wbc", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("unexpected observations response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	empty, _ := json.Marshal(models.ParseRequest{Source: "upload"})
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/normalize", bytes.NewReader(empty)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
