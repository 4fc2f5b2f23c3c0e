package dlp

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/synaptica-ai/medrecords/pkg/common/models"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Detector finds and masks identifiers in free text such as clinical notes.
type Detector struct {
	rules []compiledRule
}

func NewDetector(cfg RulesConfig) (*Detector, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile rule %s: %w", rule.Name, err)
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Detector{rules: compiled}, nil
}

// Scan reports every rule match in text. Positions are byte offsets.
func (d *Detector) Scan(text string) models.PHIDetectionResult {
	if d == nil || text == "" {
		return models.PHIDetectionResult{}
	}

	var positions []models.PHIPosition
	phiTypes := make(map[string]struct{})
	for _, rule := range d.rules {
		matches := rule.re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		phiTypes[rule.rule.Type] = struct{}{}
		for _, match := range matches {
			positions = append(positions, models.PHIPosition{
				Start: match[0],
				End:   match[1],
				Type:  rule.rule.Type,
				Value: text[match[0]:match[1]],
			})
		}
	}

	phiList := make([]string, 0, len(phiTypes))
	for t := range phiTypes {
		phiList = append(phiList, t)
	}
	sort.Strings(phiList)
	sort.SliceStable(positions, func(i, j int) bool { return positions[i].Start < positions[j].Start })

	return models.PHIDetectionResult{
		Detected:   len(positions) > 0,
		Confidence: confidenceScore(len(positions)),
		PHITypes:   phiList,
		Positions:  positions,
	}
}

// MaskText applies every enabled rule's mask to text.
func (d *Detector) MaskText(text string) string {
	if d == nil {
		return text
	}
	for _, rule := range d.rules {
		text = rule.re.ReplaceAllLiteralString(text, rule.rule.Mask)
	}
	return text
}

// MaskAll masks each entry of items in place and reports how many changed.
func (d *Detector) MaskAll(items []string) int {
	changed := 0
	for i, item := range items {
		if masked := d.MaskText(item); masked != item {
			items[i] = masked
			changed++
		}
	}
	return changed
}

func confidenceScore(count int) float64 {
	switch {
	case count == 0:
		return 0
	case count == 1:
		return 0.7
	case count == 2:
		return 0.85
	default:
		return 0.95
	}
}
