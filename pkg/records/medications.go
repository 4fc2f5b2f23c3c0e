package records

import (
	"regexp"
	"strings"
)

var (
	medicationRegionPattern = regexp.MustCompile(`(?s)Your Medication List(.+?)Medication Refill`)
	brandPattern            = regexp.MustCompile(`(?i)^Commonly known as:\s*(.+)$`)
	instructionPattern      = regexp.MustCompile(`(?i)^(?:Take|Apply|Use|Inject|Inhale|Place|Instill|Insert|Dissolve|Chew)\b`)
	dosedHeaderPattern      = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z0-9\- ]*?)\s+(\d+(?:\.\d+)?\s*(?:MG|MCG|G|UNITS?|ML|%))(?:\s*\([^)]*\))?\s*(.*)$`)
)

// medicationForms maps trailing form tokens to the form reported. "PO" is
// printed for oral products with no dosage form.
var medicationForms = map[string]string{
	"tablet":   "tablet",
	"tablets":  "tablet",
	"capsule":  "capsule",
	"capsules": "capsule",
	"solution": "solution",
	"cream":    "cream",
	"ointment": "ointment",
	"gel":      "gel",
	"lotion":   "lotion",
	"patch":    "patch",
	"powder":   "powder",
	"liquid":   "liquid",
	"spray":    "spray",
	"inhaler":  "inhaler",
	"po":       "oral",
}

var frequencyRules = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`(?i)\b(\d+) times (?:daily|a day)\b`), ""},
	{regexp.MustCompile(`(?i)\b(?:twice daily|twice a day)\b`), "2 times daily"},
	{regexp.MustCompile(`(?i)\bevery (\d+) hours\b`), ""},
	{regexp.MustCompile(`(?i)\bas needed\b`), "as needed"},
	{regexp.MustCompile(`(?i)\b(?:at bedtime|nightly)\b`), "nightly"},
	{regexp.MustCompile(`(?i)\bweekly\b`), "weekly"},
	{regexp.MustCompile(`(?i)\b(?:once daily|daily)\b`), "daily"},
}

var routeRules = []struct {
	pattern *regexp.Regexp
	route   string
}{
	{regexp.MustCompile(`(?i)\b(?:by mouth|orally)\b`), "oral"},
	{regexp.MustCompile(`(?i)\b(?:topically|apply|external)\b`), "topical"},
	{regexp.MustCompile(`(?i)\b(?:inhale|inhalation)\b`), "inhalation"},
	{regexp.MustCompile(`(?i)\b(?:inject|subcutaneous|intramuscular)\b`), "injection"},
}

// extractMedications reads the medication list of an after-visit summary.
// A header line opens an entry; brand and instruction lines that follow
// fill it in.
func extractMedications(text string) []Medication {
	region := medicationRegionPattern.FindStringSubmatch(text)
	if region == nil {
		return nil
	}

	var meds []Medication
	var current *Medication
	for _, line := range strings.Split(region[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := brandPattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				current.Brand = strings.TrimSpace(m[1])
			}
			continue
		}

		if instructionPattern.MatchString(line) {
			if current != nil {
				applyInstruction(current, line)
			}
			continue
		}

		if med, ok := parseMedicationHeader(line); ok {
			meds = append(meds, med)
			current = &meds[len(meds)-1]
		}
	}
	return meds
}

func parseMedicationHeader(line string) (Medication, bool) {
	if m := dosedHeaderPattern.FindStringSubmatch(line); m != nil {
		med := Medication{
			Name: strings.TrimSpace(m[1]),
			Dose: strings.ReplaceAll(collapseSpace(m[2]), " %", "%"),
		}
		for _, word := range strings.Fields(m[3]) {
			if form, ok := medicationForms[strings.ToLower(word)]; ok && med.Form == "" {
				med.Form = form
			}
		}
		if route := matchRoute(m[3]); route != "" {
			med.Route = route
		}
		return med, true
	}

	// Undosed products are recognised only by a trailing form token.
	words := strings.Fields(line)
	if len(words) < 2 {
		return Medication{}, false
	}
	form, ok := medicationForms[strings.ToLower(words[len(words)-1])]
	if !ok {
		return Medication{}, false
	}
	return Medication{Name: strings.Join(words[:len(words)-1], " "), Form: form}, true
}

func applyInstruction(med *Medication, line string) {
	if med.Frequency == "" {
		for _, rule := range frequencyRules {
			m := rule.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			switch {
			case rule.label != "":
				med.Frequency = rule.label
			case strings.HasPrefix(strings.ToLower(m[0]), "every"):
				med.Frequency = "every " + m[1] + " hours"
			default:
				med.Frequency = m[1] + " times daily"
			}
			break
		}
	}
	if med.Route == "" {
		med.Route = matchRoute(line)
	}
}

func matchRoute(text string) string {
	for _, rule := range routeRules {
		if rule.pattern.MatchString(text) {
			return rule.route
		}
	}
	return ""
}
