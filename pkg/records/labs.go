package records

import (
	"regexp"
	"strings"
)

// noiseMarkers identify table headers and page footers.
var noiseMarkers = []string{
	"Test Current Result",
	"TESTS RESULT",
	"Analyte Value",
	"©",
	"Laboratory Corporation",
}

const (
	FormatAllergen = "allergen"
	FormatLabcorp  = "labcorp"
	FormatQuest    = "quest"
)

const referenceExpr = `Not Estab\.?|Not Established|Negative|Non[ -]Reactive|Class \d|[<>]=?\s*[\d.]+|[\d.]+\s*[-–]\s*[\d.]+`

var (
	previousResultPattern = regexp.MustCompile(`^[<>]?[\d.]+\s+\d{1,2}/\d{1,2}/\d{4}\s+`)
	referenceOnlyPattern  = regexp.MustCompile(`(?i)^(?:` + referenceExpr + `)$`)
	unitsReferencePattern = regexp.MustCompile(`^([A-Za-z%µμ][A-Za-z0-9%µμ/.^*⁰¹²³⁴⁵⁶⁷⁸⁹⁻]*)(?:\s+(` + referenceExpr + `))?`)
	leadingRangePattern   = regexp.MustCompile(`^(` + referenceExpr + `)\s*(\S*)`)
)

// lineFormat is one entry in the ordered table of lab line layouts. emit
// returns false to reject a structural match so the next format is tried.
type lineFormat struct {
	tag     string
	pattern *regexp.Regexp
	emit    func(m []string, rest string, ctx ParseContext, acc *accumulator) bool
}

// labLineFormats is evaluated top to bottom; the first accepted match ends
// processing of the line.
var labLineFormats = []lineFormat{
	{
		tag:     FormatAllergen,
		pattern: regexp.MustCompile(`^` + allergenExpr),
		emit: func(m []string, _ string, ctx ParseContext, acc *accumulator) bool {
			acc.allergies = append(acc.allergies, newAllergen(m[1], m[2], m[3], m[4], m[5], ctx.DateCollected))
			return true
		},
	},
	{
		tag:     FormatLabcorp,
		pattern: regexp.MustCompile(`^([A-Za-z][A-Za-z0-9\s\-(),./']+?)\s+0[123]\s+([<>]?[\d.]+|Negative|Positive|Non Reactive)(?:\s*(High|Low|H|L)\b)?`),
		emit: func(m []string, rest string, ctx ParseContext, acc *accumulator) bool {
			units, reference := splitTrailer(rest)
			return acc.addLab(FormatLabcorp, m[1], m[2], m[3], units, reference, ctx)
		},
	},
	{
		tag:     FormatQuest,
		pattern: regexp.MustCompile(`^([A-Z][A-Z0-9\s\-(),./]+?)\s+([\d.]+|Negative|Positive)(?:\s*(H|L)\b)?\s+Reference Range:\s*(.*)$`),
		emit: func(m []string, _ string, ctx ParseContext, acc *accumulator) bool {
			reference, units := splitQuestReference(m[4])
			return acc.addLab(FormatQuest, m[1], m[2], m[3], units, reference, ctx)
		},
	},
}

// matchLabLine runs the format table over one line and returns the tag of
// the format that accepted it.
func matchLabLine(line string, ctx ParseContext, acc *accumulator) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || isNoise(line) {
		return "", false
	}
	for _, format := range labLineFormats {
		loc := format.pattern.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		m := submatches(line, loc)
		if format.emit(m, line[loc[1]:], ctx, acc) {
			return format.tag, true
		}
	}
	return "", false
}

func extractLabs(pages []Page, contexts []ParseContext, acc *accumulator) {
	for i, page := range pages {
		for _, line := range strings.Split(page.Text, "\n") {
			matchLabLine(line, contexts[i], acc)
		}
	}
}

// addLab appends a lab result unless the test name is a false positive.
func (acc *accumulator) addLab(format, name, value, flag, units, reference string, ctx ParseContext) bool {
	name = strings.TrimSpace(name)
	if len(name) < 3 || strings.HasPrefix(name, "Page") {
		return false
	}

	result := LabResult{
		TestName:          name,
		Value:             NormalizeValue(value),
		Units:             units,
		Flag:              NormalizeFlag(flag),
		DateCollected:     ctx.DateCollected,
		Panel:             ctx.Panel,
		OrderingPhysician: ctx.Physician,
		SpecimenID:        ctx.SpecimenID,
		SourceFormat:      format,
	}
	if reference != "" {
		rr := NormalizeReferenceRange(reference)
		result.ReferenceRange = &rr
	}
	acc.labs = append(acc.labs, result)
	return true
}

// splitTrailer reads units and a reference interval from the text after the
// value. Labcorp may print a previous result and its date first.
func splitTrailer(rest string) (units, reference string) {
	rest = strings.TrimSpace(rest)
	if loc := previousResultPattern.FindStringIndex(rest); loc != nil {
		rest = strings.TrimSpace(rest[loc[1]:])
	}
	if rest == "" {
		return "", ""
	}
	if referenceOnlyPattern.MatchString(rest) {
		return "", rest
	}
	m := unitsReferencePattern.FindStringSubmatch(rest)
	if m == nil {
		return "", ""
	}
	return m[1], strings.TrimSpace(m[2])
}

func splitQuestReference(text string) (reference, units string) {
	text = strings.TrimSpace(text)
	if m := leadingRangePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	return text, ""
}

func isNoise(line string) bool {
	for _, marker := range noiseMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// submatches expands a FindStringSubmatchIndex result, leaving unmatched
// groups empty.
func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}
