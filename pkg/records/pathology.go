package records

import (
	"regexp"
	"strings"
)

var (
	pathologyPattern = regexp.MustCompile(`(?s)((?i:Dermatopathology|Surgical Pathology)) Report\s*PATIENT\s+([^\n]+?)\s+ACCESSION\s+(\w+-\d+).*?COLLECTED\s+(\d{1,2}/\d{1,2}/\d{4}).*?DIAGNOSIS\s*(.+?)GROSS`)
	diagnosisPattern = regexp.MustCompile(`([A-Z])\)\s*([^:\n]+):\s*([^\n]+)(?:\n[ \t]*Comment:[ \t]*([^\n]+))?`)
)

func extractPathology(text string) []PathologyReport {
	var reports []PathologyReport
	for _, m := range pathologyPattern.FindAllStringSubmatch(text, -1) {
		diagnoses := []Diagnosis{}
		for _, d := range diagnosisPattern.FindAllStringSubmatch(m[5], -1) {
			diagnoses = append(diagnoses, Diagnosis{
				Label:   d[1],
				Site:    strings.TrimSpace(d[2]),
				Finding: strings.TrimSpace(d[3]),
				Comment: strings.TrimSpace(d[4]),
			})
		}
		reports = append(reports, PathologyReport{
			Type:          pathologyType(m[1]),
			PatientName:   strings.TrimSpace(m[2]),
			Accession:     m[3],
			DateCollected: NormalizeDate(m[4]),
			Diagnoses:     diagnoses,
		})
	}
	return reports
}

func pathologyType(header string) string {
	if strings.EqualFold(header, "Surgical Pathology") {
		return "Surgical Pathology"
	}
	return "Dermatopathology"
}
