package records

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/synaptica-ai/medrecords/pkg/profile"
	"github.com/synaptica-ai/medrecords/pkg/terminology"
)

var fixedNow = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

const twoPageRecord = "=== PAGE 1 ===\n" +
	"Date Collected: 01/15/2020\n" +
	"Ordering Physician: J SMITH\n" +
	"WBC 01 6.5 x10E3/uL 3.4-10.8\n" +
	"=== PAGE 2 ===\n" +
	"D1-IgE Dust Mite 01 0.05 kU/L Class 0\n"

func TestParseLabEndToEnd(t *testing.T) {
	doc := New(Options{Now: fixedNow, SourceName: "records.txt"}).Parse(twoPageRecord)

	if doc.Metadata.TotalPages != 3 || doc.Metadata.SourceFile != "records.txt" {
		t.Fatalf("unexpected metadata %+v", doc.Metadata)
	}
	if doc.Metadata.ParserVersion != DefaultParserVersion || !doc.Metadata.ParsedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected metadata %+v", doc.Metadata)
	}

	labs := doc.LaboratoryResults
	if labs.TotalCount != 1 || len(labs.AllResults) != 1 {
		t.Fatalf("expected exactly one lab result, got %+v", labs.AllResults)
	}
	hematology := labs.ByCategory["hematology"]
	if len(hematology) != 1 {
		t.Fatalf("expected one hematology result, got %+v", labs.ByCategory)
	}
	wbc := hematology[0]
	if wbc.TestName != "WBC" || wbc.Value.Number == nil || *wbc.Value.Number != 6.5 {
		t.Fatalf("unexpected WBC %+v", wbc)
	}
	if wbc.Units != "x10E3/uL" {
		t.Fatalf("unexpected units %q", wbc.Units)
	}
	rr := wbc.ReferenceRange
	if rr == nil || rr.Kind != RangeBounded || *rr.Min != 3.4 || *rr.Max != 10.8 {
		t.Fatalf("unexpected reference range %+v", rr)
	}
	if wbc.DateCollected.Text != "2020-01-15" || wbc.OrderingPhysician != "J SMITH" {
		t.Fatalf("unexpected context %+v", wbc)
	}

	if len(doc.Physicians) != 1 || doc.Physicians[0] != "J SMITH" {
		t.Fatalf("unexpected physicians %v", doc.Physicians)
	}
	if r := doc.Metadata.DataDateRange; r.Earliest != "2020-01-15" || r.Latest != "2020-01-15" {
		t.Fatalf("unexpected date range %+v", r)
	}
}

func TestParseAllergenEndToEnd(t *testing.T) {
	doc := New(Options{Now: fixedNow}).Parse(twoPageRecord)

	allergies := doc.Allergies
	if allergies.TotalTested != 1 || len(allergies.AllResults) != 1 {
		t.Fatalf("expected one allergy entry, got %+v", allergies.AllResults)
	}
	mite := allergies.AllResults[0]
	if mite.Category != "Dust Mites" || mite.Class == nil || *mite.Class != 0 {
		t.Fatalf("unexpected allergen %+v", mite)
	}
	if mite.Interpretation != "Negative" || mite.IsPositive {
		t.Fatalf("unexpected interpretation %+v", mite)
	}
	if allergies.PositiveCount != 0 || len(allergies.Environmental) != 1 || len(allergies.Foods) != 0 {
		t.Fatalf("unexpected allergy partition %+v", allergies)
	}
}

func TestParseCollapsesDuplicateLines(t *testing.T) {
	text := twoPageRecord + "=== PAGE 3 ===\nWBC 01 6.5 x10E3/uL 3.4-10.8\nWBC 01 6.5 x10E3/uL 3.4-10.8\n"
	doc := New(Options{Now: fixedNow}).Parse(text)
	if doc.LaboratoryResults.TotalCount != 1 {
		t.Fatalf("expected duplicates to collapse, got %d", doc.LaboratoryResults.TotalCount)
	}
}

func TestParseAttachesTerminologyCodes(t *testing.T) {
	catalog := terminology.DefaultCatalog()
	doc := New(Options{Now: fixedNow, Terminology: &catalog}).Parse(twoPageRecord)
	codes := doc.LaboratoryResults.AllResults[0].Codes
	if codes == nil || codes.LOINC != "6690-2" {
		t.Fatalf("expected LOINC code on WBC, got %+v", codes)
	}
}

func TestParseDeclaredDateRange(t *testing.T) {
	declared := &DateRange{Earliest: "2017-07-25", Latest: "2026-01-22"}
	doc := New(Options{Now: fixedNow, DateRange: declared}).Parse(twoPageRecord)
	if doc.Metadata.DataDateRange != *declared {
		t.Fatalf("declared range ignored: %+v", doc.Metadata.DataDateRange)
	}
}

func TestParseEmptyInputProducesCompleteDocument(t *testing.T) {
	doc := New(Options{Now: fixedNow}).Parse("")
	if doc.Metadata.TotalPages != 1 || doc.LaboratoryResults.TotalCount != 0 {
		t.Fatalf("unexpected document %+v", doc.Metadata)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	for _, key := range []string{
		"metadata", "patient", "physicians", "laboratory_results", "allergies", "genetic_data",
		"imaging_reports", "pathology_reports", "synovial_fluid_analyses", "medications",
		"visit_summaries", "clinical_notes",
	} {
		if _, ok := out[key]; !ok {
			t.Fatalf("missing top-level key %q", key)
		}
	}
	if out["physicians"] == nil || out["medications"] == nil {
		t.Fatal("empty collections must encode as arrays, not null")
	}
}

func TestParseJSONShape(t *testing.T) {
	doc := New(Options{Now: fixedNow}).Parse(twoPageRecord)
	encoded, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}

	var out struct {
		LaboratoryResults struct {
			AllResults []struct {
				TestName      string `json:"test_name"`
				DateCollected string `json:"date_collected"`
				Value         struct {
					Value float64 `json:"value"`
					Raw   string  `json:"raw"`
				} `json:"value"`
				ReferenceRange struct {
					Kind string  `json:"kind"`
					Min  float64 `json:"min"`
					Max  float64 `json:"max"`
				} `json:"reference_range"`
				Category string `json:"category"`
			} `json:"all_results"`
		} `json:"laboratory_results"`
	}
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	lab := out.LaboratoryResults.AllResults[0]
	if lab.Value.Value != 6.5 || lab.Value.Raw != "6.5" || lab.DateCollected != "2020-01-15" {
		t.Fatalf("unexpected encoded lab %+v", lab)
	}
	if lab.ReferenceRange.Kind != "bounded" || lab.ReferenceRange.Min != 3.4 || lab.Category != "hematology" {
		t.Fatalf("unexpected encoded lab %+v", lab)
	}
}

func TestParsePatientIdentity(t *testing.T) {
	prof := profile.Profile{
		Name:        profile.Name{First: "Jordan", Middle: "Q", Last: "Rivera"},
		DateOfBirth: "03/14/1980",
		Sex:         "Female",
		Cities:      []string{"San Diego", "La Jolla"},
		State:       "CA",
	}
	text := "Patient ID: ABC123\nMRN: 555\n" +
		"Address: 123 MAIN ST, SAN DIEGO, CA 92101\n" +
		"=== PAGE 2 ===\nMRN: 555\nMRN: 777\n" +
		"4500 LA JOLLA VILLAGE DR STE 10, LA JOLLA, CA 92037\n" +
		"123 MAIN ST, SAN DIEGO, CA 92101\n"

	doc := New(Options{Now: fixedNow, Profile: prof}).Parse(text)
	p := doc.Patient
	if p.Name.Full != "Jordan Q. Rivera" || p.DateOfBirth.Text != "1980-03-14" {
		t.Fatalf("unexpected identity %+v", p)
	}
	if strings.Join(p.PatientIDs, ",") != "ABC123" || strings.Join(p.MRNs, ",") != "555,777" {
		t.Fatalf("unexpected identifiers %v %v", p.PatientIDs, p.MRNs)
	}
	if len(p.Addresses) != 2 {
		t.Fatalf("expected 2 unique addresses, got %+v", p.Addresses)
	}
	if p.Addresses[0] != (Address{Street: "123 MAIN ST", City: "San Diego", State: "CA", Zip: "92101"}) {
		t.Fatalf("unexpected first address %+v", p.Addresses[0])
	}
	if p.Addresses[1].City != "La Jolla" || p.Addresses[1].Street != "4500 LA JOLLA VILLAGE DR STE 10" {
		t.Fatalf("unexpected second address %+v", p.Addresses[1])
	}
}

func TestParseNormalizesInput(t *testing.T) {
	// Fullwidth digits fold to ASCII and CRLF line endings to LF.
	text := "Date Collected: 01/15/2020\r\nWBC 01 \uff16.\uff15 x10E3/uL 3.4-10.8\r\n"
	doc := New(Options{Now: fixedNow}).Parse(text)
	labs := doc.LaboratoryResults.AllResults
	if len(labs) != 1 || labs[0].Value.Raw != "6.5" || labs[0].ReferenceRange.Raw != "3.4-10.8" {
		t.Fatalf("unexpected labs %+v", labs)
	}
	if labs[0].DateCollected.Text != "2020-01-15" {
		t.Fatalf("unexpected date %+v", labs[0].DateCollected)
	}
}

func TestParseKeepsUnitSymbols(t *testing.T) {
	// No-break spaces fold to spaces; superscripts and the micro sign stay.
	text := "Date Collected: 01/15/2020\nWBC\u00a001 6.5 x10³/µL 3.4-10.8\nPlatelets 01 250 x10³/µL 150-450\n"
	doc := New(Options{Now: fixedNow}).Parse(text)
	labs := doc.LaboratoryResults.AllResults
	if len(labs) != 2 {
		t.Fatalf("expected 2 labs, got %+v", labs)
	}
	for _, lab := range labs {
		if lab.Units != "x10³/µL" {
			t.Fatalf("units rewritten for %s: %q", lab.TestName, lab.Units)
		}
	}
	if labs[0].TestName != "WBC" || labs[0].Value.Raw != "6.5" || labs[0].ReferenceRange.Raw != "3.4-10.8" {
		t.Fatalf("unexpected first lab %+v", labs[0])
	}
}

func TestNormalizeInput(t *testing.T) {
	cases := map[string]string{
		"Speci\ufb01c IgE\r\n":  "Specific IgE\n",
		"\uff37\uff22\uff23 01": "WBC 01",
		"x10³/µL":               "x10³/µL",
		"1 mg\rnext":            "1 mg\nnext",
		"Cafe\u0301":            "Caf\u00e9",
	}
	for in, want := range cases {
		if got := normalizeInput(in); got != want {
			t.Fatalf("normalizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
