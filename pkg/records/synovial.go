package records

import (
	"regexp"
	"strings"
)

var (
	synovialPattern = regexp.MustCompile(`(?s)SYNOVIAL FLUID CELL COUNT.*?` +
		`Collected on\s+([^\n]+).*?` +
		`Fluid Source.*?Value\s*([^\n]+).*?` +
		`Fluid Nucleated Cell Count.*?Value\s*([\d,]+).*?` +
		`Fluid RBC Count.*?Value\s*([\d,]+).*?` +
		`Fluid Neutrophils.*?Value\s*(\d+).*?` +
		`Fluid Lymphocytes.*?Value\s*(\d+).*?` +
		`Fluid Mononuclears.*?Value\s*(\d+).*?` +
		`Fluid Basophils.*?Value\s*(\d+)`)
	dateTokenPattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2}|[A-Z][a-z]+ \d{1,2}, \d{4}`)
)

// inflammatoryThreshold is the nucleated cell count per mcL above which a
// fluid is classed as inflammatory.
const inflammatoryThreshold = 200

func extractSynovial(text string) []SynovialFluidAnalysis {
	var out []SynovialFluidAnalysis
	for _, m := range synovialPattern.FindAllStringSubmatch(text, -1) {
		collected := strings.TrimSpace(m[1])
		analysis := SynovialFluidAnalysis{
			CollectedOn:        collected,
			DateCollected:      NormalizeDate(collected),
			Source:             strings.TrimSpace(m[2]),
			NucleatedCellCount: measure(m[3], "/mcL", bounded(0, inflammatoryThreshold)),
			RBCCount:           measure(m[4], "/mcL", upperBound(15000)),
			Differential: Differential{
				Neutrophils:  measure(m[5], "%", upperBound(25)),
				Lymphocytes:  measure(m[6], "%", nil),
				Mononuclears: measure(m[7], "%", nil),
				Basophils:    measure(m[8], "%", nil),
			},
		}
		if token := dateTokenPattern.FindString(collected); token != "" {
			analysis.DateCollected = NormalizeDate(token)
		}
		if n := analysis.NucleatedCellCount.Value; n != nil {
			if *n > inflammatoryThreshold {
				analysis.Interpretation = "Inflammatory"
			} else {
				analysis.Interpretation = "Non-inflammatory"
			}
		}
		out = append(out, analysis)
	}
	return out
}

func measure(raw, units string, rr *ReferenceRange) Measurement {
	m := Measurement{Raw: strings.TrimSpace(raw), Units: units, ReferenceRange: rr}
	if n, ok := parseCount(raw); ok {
		m.Value = &n
	}
	return m
}

func bounded(low, high float64) *ReferenceRange {
	return &ReferenceRange{Kind: RangeBounded, Min: floatPtr(low), Max: floatPtr(high)}
}

func upperBound(high float64) *ReferenceRange {
	return &ReferenceRange{Kind: RangeUpperBound, Max: floatPtr(high)}
}
