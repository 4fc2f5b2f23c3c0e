package records

import (
	"regexp"
	"strings"
)

var (
	referralSummaryPattern = regexp.MustCompile(`(?s)Referral Summary[^\n]*\n(.+?)(?:Summary of History|\z)`)
	hypothesesPattern      = regexp.MustCompile(`(?s)Leading unifying hypotheses(.+?)Diagnostic gaps`)
	bulletPattern          = regexp.MustCompile(`●\s+([^●]+)`)
)

const (
	NoteReferralSummary   = "Referral Summary"
	NoteWorkingHypotheses = "Working Hypotheses"

	referralLimit   = 500
	hypothesisLimit = 200
	hypothesisCount = 10
)

func extractNotes(text string) []ClinicalNote {
	var notes []ClinicalNote

	if m := referralSummaryPattern.FindStringSubmatch(text); m != nil {
		if content := strings.TrimSpace(m[1]); content != "" {
			notes = append(notes, ClinicalNote{
				Type:    NoteReferralSummary,
				Content: truncate(content, referralLimit),
			})
		}
	}

	if m := hypothesesPattern.FindStringSubmatch(text); m != nil {
		bullets := bulletPattern.FindAllStringSubmatch(m[1], hypothesisCount)
		items := make([]string, 0, len(bullets))
		for _, b := range bullets {
			items = append(items, truncate(strings.TrimSpace(b[1]), hypothesisLimit))
		}
		notes = append(notes, ClinicalNote{Type: NoteWorkingHypotheses, Items: items})
	}

	return notes
}
