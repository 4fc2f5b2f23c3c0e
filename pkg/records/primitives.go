package records

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"1/2/2006",
	"1/2/06",
	"2006-1-2",
	"1-2-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/1/2",
}

var (
	numericPattern    = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)
	rangePattern      = regexp.MustCompile(`^([<>]?\s*[\d.]+)\s*[-–]\s*([\d.]+)$`)
	comparisonPattern = regexp.MustCompile(`^([<>]=?)\s*([\d.]+)$`)
)

// NormalizeDate converts a date in any known layout to ISO form. Text that
// matches no layout comes back trimmed with Parsed unset.
func NormalizeDate(text string) Date {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Date{Text: t.Format(isoDate), Parsed: true}
		}
	}
	return Date{Text: trimmed}
}

// NormalizeReferenceRange classifies a reference interval. Rules are applied
// in a fixed priority order and the first match wins.
func NormalizeReferenceRange(text string) ReferenceRange {
	raw := strings.TrimSpace(text)
	switch strings.ToLower(raw) {
	case "", "not estab.", "not estab", "not established":
		return ReferenceRange{Kind: RangeNotEstablished, Raw: raw}
	}

	if m := rangePattern.FindStringSubmatch(raw); m != nil {
		low, okLow := parseNumber(strings.Trim(m[1], "<> \t"))
		high, okHigh := parseNumber(m[2])
		if okLow && okHigh {
			return ReferenceRange{Kind: RangeBounded, Min: &low, Max: &high, Raw: raw}
		}
	}

	if m := comparisonPattern.FindStringSubmatch(raw); m != nil {
		if bound, ok := parseNumber(m[2]); ok {
			if strings.HasPrefix(m[1], ">") {
				return ReferenceRange{Kind: RangeLowerBound, Min: &bound, Raw: raw}
			}
			return ReferenceRange{Kind: RangeUpperBound, Max: &bound, Raw: raw}
		}
	}

	lower := strings.ToLower(raw)
	switch {
	case lower == "negative" || lower == "non reactive" || lower == "non-reactive":
		return ReferenceRange{Kind: RangeQualitative, Expected: "Negative", Raw: raw}
	case strings.Contains(lower, "class 0"):
		return ReferenceRange{Kind: RangeQualitative, Expected: "Class 0", Raw: raw}
	}

	return ReferenceRange{Kind: RangeRaw, Raw: raw}
}

// NormalizeValue interprets a result token. A leading comparison sets the
// qualifier even when the remainder is not numeric.
func NormalizeValue(text string) Value {
	raw := strings.TrimSpace(text)
	v := Value{Raw: raw}
	if raw == "" {
		return v
	}

	if raw[0] == '<' || raw[0] == '>' {
		v.Qualifier = raw[:1]
		if n, ok := parseNumber(strings.TrimSpace(raw[1:])); ok {
			v.Number = &n
		}
		return v
	}

	if n, ok := parseNumber(raw); ok {
		v.Number = &n
		return v
	}
	v.Text = raw
	return v
}

// NormalizeFlag maps flag tokens to their canonical label.
func NormalizeFlag(text string) Flag {
	token := strings.TrimSpace(text)
	if token == "" {
		return ""
	}
	switch strings.ToUpper(token) {
	case "H", "HIGH":
		return FlagHigh
	case "L", "LOW":
		return FlagLow
	case "A", "ABNORMAL":
		return FlagAbnormal
	case "C", "CRITICAL":
		return FlagCritical
	}
	return Flag(token)
}

func parseNumber(text string) (float64, bool) {
	if !numericPattern.MatchString(text) {
		return 0, false
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func parseCount(text string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(text), ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func floatPtr(f float64) *float64 { return &f }

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
