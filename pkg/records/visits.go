package records

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	visitHeaderPattern = regexp.MustCompile(`(?s)AFTER VISIT SUMMARY\s*([^\n]*MRN:\s*\d+).*?Today['’]s Visit\s*(.+?)\s*Blood\s+BMI\s*Pressure\s*([\d./]+)\s*([\d.]+)`)
	vitalsPattern      = regexp.MustCompile(`Blood\s+BMI\s*Pressure\s*([\d/]+)\s*([\d.]+)\s*` +
		`Weight\s+Height\s*(\d+)\s*lb\s*([\d'’′"”″ \t]+?)\s*` +
		`Temperature\s+Pulse\s*([\d.]+)\s*°F\s*(\d+)\s*` +
		`Respiration\s+Oxygen\s*(\d+)\s*Saturation\s*(\d+)%`)
)

const visitReasonLimit = 200

type visitEvent struct {
	offset int
	header *VisitSummary
	vitals *Vitals
}

// extractVisits merges visit headers and vitals blocks in document order.
// A vitals block fills the last visit when that visit has no full vitals
// yet; otherwise it opens a new visit.
func extractVisits(text string) []VisitSummary {
	var events []visitEvent

	for _, loc := range visitHeaderPattern.FindAllStringSubmatchIndex(text, -1) {
		m := submatches(text, loc)
		visit := &VisitSummary{
			PatientHeader: strings.TrimSpace(m[1]),
			VisitReason:   truncate(collapseSpace(m[2]), visitReasonLimit),
			Vitals:        &Vitals{BloodPressure: m[3]},
		}
		if bmi, ok := parseNumber(m[4]); ok {
			visit.Vitals.BMI = &bmi
		}
		events = append(events, visitEvent{offset: loc[0], header: visit})
	}

	for _, loc := range vitalsPattern.FindAllStringSubmatchIndex(text, -1) {
		events = append(events, visitEvent{offset: loc[0], vitals: parseVitals(submatches(text, loc))})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].offset < events[j].offset })

	var visits []VisitSummary
	for _, e := range events {
		if e.header != nil {
			visits = append(visits, *e.header)
			continue
		}
		if n := len(visits); n > 0 && !visits[n-1].Vitals.Complete() {
			visits[n-1].Vitals = e.vitals
			continue
		}
		visits = append(visits, VisitSummary{Vitals: e.vitals})
	}
	return visits
}

func parseVitals(m []string) *Vitals {
	v := &Vitals{
		BloodPressure: m[1],
		Height:        strings.TrimSpace(m[4]),
	}
	if n, ok := parseNumber(m[2]); ok {
		v.BMI = &n
	}
	if n, err := strconv.Atoi(m[3]); err == nil {
		v.WeightLbs = &n
	}
	if n, ok := parseNumber(m[5]); ok {
		v.TemperatureF = &n
	}
	if n, err := strconv.Atoi(m[6]); err == nil {
		v.Pulse = &n
	}
	if n, err := strconv.Atoi(m[7]); err == nil {
		v.Respiration = &n
	}
	if n, err := strconv.Atoi(m[8]); err == nil {
		v.OxygenSaturation = &n
	}
	return v
}
