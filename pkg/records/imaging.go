package records

import (
	"regexp"
	"strings"
)

var (
	imagingReferralPattern = regexp.MustCompile(`(?s)Procedure:\s*((?i:MRI|MRA|CT|X-RAY|ULTRASOUND)[^\n]+)\s*CPT Code:\s*(\d+)\s*Clinical Indication:\s*(.+?)\s*(?:ICD-10|Instructions)`)
	icd10Pattern           = regexp.MustCompile(`ICD-10:\s*(\w+\.\w+)\s*[–-]\s*([^\n]+)`)
)

// extractImaging captures ordered imaging procedures. The first ICD-10 pair
// in the document is attached to the last procedure found.
func extractImaging(text string) []ImagingReport {
	var reports []ImagingReport
	for _, m := range imagingReferralPattern.FindAllStringSubmatch(text, -1) {
		reports = append(reports, ImagingReport{
			Type:               "referral",
			Procedure:          strings.TrimSpace(m[1]),
			CPTCode:            m[2],
			ClinicalIndication: collapseSpace(m[3]),
			Status:             "ordered",
		})
	}

	if len(reports) == 0 {
		return nil
	}
	if m := icd10Pattern.FindStringSubmatch(text); m != nil {
		last := &reports[len(reports)-1]
		last.ICD10Code = m[1]
		last.ICD10Description = strings.TrimSpace(m[2])
	}
	return reports
}
