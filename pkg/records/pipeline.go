package records

import (
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/medrecords/pkg/common/logger"
	"github.com/synaptica-ai/medrecords/pkg/profile"
	"github.com/synaptica-ai/medrecords/pkg/terminology"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const DefaultParserVersion = "2.0.0"

type Options struct {
	ParserVersion string
	SourceName    string
	Profile       profile.Profile
	// Terminology attaches LOINC and SNOMED codes to recognised tests.
	Terminology *terminology.Catalog
	// DateRange replaces the range computed from collection dates.
	DateRange *DateRange
	Now       func() time.Time
}

// Pipeline turns record text into a Document. It holds only configuration
// and is safe for concurrent use.
type Pipeline struct {
	opts           Options
	addressPattern *regexp.Regexp
}

func New(opts Options) *Pipeline {
	if opts.ParserVersion == "" {
		opts.ParserVersion = DefaultParserVersion
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		opts:           opts,
		addressPattern: compileAddressPattern(opts.Profile),
	}
}

// WithSource returns a copy of the pipeline that stamps documents with name.
func (p *Pipeline) WithSource(name string) *Pipeline {
	cp := *p
	cp.opts.SourceName = name
	return &cp
}

// Parse runs every extractor over text. It never fails: fragments that
// cannot be structured are kept raw or skipped.
func (p *Pipeline) Parse(text string) *Document {
	text = normalizeInput(text)
	pages := SplitPages(text)
	acc := newAccumulator()

	contexts := trackContexts(pages, acc)
	extractLabs(pages, contexts, acc)
	extractAllergies(text, pages, contexts, acc)
	acc.genetic = extractGenetic(text)
	acc.imaging = extractImaging(text)
	acc.pathology = extractPathology(text)
	acc.synovial = extractSynovial(text)
	acc.medications = extractMedications(text)
	acc.visits = extractVisits(text)
	acc.notes = extractNotes(text)
	acc.patient = p.extractPatient(text)

	doc := p.assemble(acc, len(pages))

	logger.WithFields(logrus.Fields{
		"source":      p.opts.SourceName,
		"pages":       len(pages),
		"labs":        doc.LaboratoryResults.TotalCount,
		"allergies":   doc.Allergies.TotalTested,
		"imaging":     len(doc.ImagingReports),
		"pathology":   len(doc.PathologyReports),
		"synovial":    len(doc.SynovialFluidAnalyses),
		"medications": len(doc.Medications),
		"visits":      len(doc.VisitSummaries),
		"physicians":  len(doc.Physicians),
	}).Debug("Record text parsed")

	return doc
}

// inputFolds rewrites layout characters that OCR and PDF text extraction
// emit. Superscripts and the micro sign are left alone: they carry units.
var inputFolds = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u00a0", " ",
	"\u2007", " ",
	"\u202f", " ",
	"\ufb00", "ff",
	"\ufb01", "fi",
	"\ufb02", "fl",
	"\ufb03", "ffi",
	"\ufb04", "ffl",
)

// normalizeInput composes text to NFC, narrows fullwidth forms and folds
// layout characters. It does not apply compatibility decomposition.
func normalizeInput(text string) string {
	text = norm.NFC.String(text)
	text = width.Fold.String(text)
	return inputFolds.Replace(text)
}
