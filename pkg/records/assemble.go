package records

import (
	"time"
)

type DateRange struct {
	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`
}

type Metadata struct {
	ParserVersion string    `json:"parser_version"`
	ParsedAt      time.Time `json:"parsed_at"`
	SourceFile    string    `json:"source_file"`
	TotalPages    int       `json:"total_pages"`
	DataDateRange DateRange `json:"data_date_range"`
}

type LabSection struct {
	TotalCount int                    `json:"total_count"`
	ByCategory map[string][]LabResult `json:"by_category"`
	AllResults []LabResult            `json:"all_results"`
}

type AllergySection struct {
	TotalTested   int              `json:"total_tested"`
	PositiveCount int              `json:"positive_count"`
	Environmental []AllergenResult `json:"environmental"`
	Foods         []AllergenResult `json:"foods"`
	AllResults    []AllergenResult `json:"all_results"`
}

// Document is the normalized form of one source text.
type Document struct {
	Metadata              Metadata                `json:"metadata"`
	Patient               PatientIdentity         `json:"patient"`
	Physicians            []string                `json:"physicians"`
	LaboratoryResults     LabSection              `json:"laboratory_results"`
	Allergies             AllergySection          `json:"allergies"`
	GeneticData           GeneticReport           `json:"genetic_data"`
	ImagingReports        []ImagingReport         `json:"imaging_reports"`
	PathologyReports      []PathologyReport       `json:"pathology_reports"`
	SynovialFluidAnalyses []SynovialFluidAnalysis `json:"synovial_fluid_analyses"`
	Medications           []Medication            `json:"medications"`
	VisitSummaries        []VisitSummary          `json:"visit_summaries"`
	ClinicalNotes         []ClinicalNote          `json:"clinical_notes"`
}

// accumulator owns everything extracted during one Parse call.
type accumulator struct {
	physicians     []string
	seenPhysicians map[string]bool

	patient     PatientIdentity
	labs        []LabResult
	allergies   []AllergenResult
	genetic     GeneticReport
	imaging     []ImagingReport
	pathology   []PathologyReport
	synovial    []SynovialFluidAnalysis
	medications []Medication
	visits      []VisitSummary
	notes       []ClinicalNote
}

func newAccumulator() *accumulator {
	return &accumulator{seenPhysicians: make(map[string]bool)}
}

func (acc *accumulator) addPhysician(name string) {
	if acc.seenPhysicians[name] {
		return
	}
	acc.seenPhysicians[name] = true
	acc.physicians = append(acc.physicians, name)
}

func (p *Pipeline) assemble(acc *accumulator, totalPages int) *Document {
	labs := DedupLabs(acc.labs)
	p.attachCodes(labs)
	byCategory := GroupByCategory(labs)

	allergies := DedupAllergies(acc.allergies)
	environmental, foods := PartitionAllergies(allergies)
	positive := 0
	for _, a := range allergies {
		if a.IsPositive {
			positive++
		}
	}

	doc := &Document{
		Metadata: Metadata{
			ParserVersion: p.opts.ParserVersion,
			ParsedAt:      p.opts.Now().UTC(),
			SourceFile:    p.opts.SourceName,
			TotalPages:    totalPages,
		},
		Patient:    acc.patient,
		Physicians: nonNil(acc.physicians),
		LaboratoryResults: LabSection{
			TotalCount: len(labs),
			ByCategory: byCategory,
			AllResults: labs,
		},
		Allergies: AllergySection{
			TotalTested:   len(allergies),
			PositiveCount: positive,
			Environmental: environmental,
			Foods:         foods,
			AllResults:    allergies,
		},
		GeneticData:           acc.genetic,
		ImagingReports:        nonNil(acc.imaging),
		PathologyReports:      nonNil(acc.pathology),
		SynovialFluidAnalyses: nonNil(acc.synovial),
		Medications:           nonNil(acc.medications),
		VisitSummaries:        nonNil(acc.visits),
		ClinicalNotes:         nonNil(acc.notes),
	}

	if p.opts.DateRange != nil {
		doc.Metadata.DataDateRange = *p.opts.DateRange
	} else {
		doc.Metadata.DataDateRange = observedRange(doc)
	}
	return doc
}

func (p *Pipeline) attachCodes(labs []LabResult) {
	if p.opts.Terminology == nil {
		return
	}
	for i := range labs {
		if concept, ok := p.opts.Terminology.Match(labs[i].TestName); ok {
			labs[i].Codes = &LabCodes{Display: concept.Display, LOINC: concept.LOINC, SNOMED: concept.SNOMED}
		}
	}
}

// observedRange spans every parsed collection date in the document.
func observedRange(doc *Document) DateRange {
	var r DateRange
	add := func(d Date) {
		if !d.Parsed {
			return
		}
		if r.Earliest == "" || d.Text < r.Earliest {
			r.Earliest = d.Text
		}
		if r.Latest == "" || d.Text > r.Latest {
			r.Latest = d.Text
		}
	}
	for _, lab := range doc.LaboratoryResults.AllResults {
		add(lab.DateCollected)
	}
	for _, a := range doc.Allergies.AllResults {
		add(a.DateCollected)
	}
	for _, report := range doc.PathologyReports {
		add(report.DateCollected)
	}
	for _, s := range doc.SynovialFluidAnalyses {
		add(s.DateCollected)
	}
	return r
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
