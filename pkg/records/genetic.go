package records

import (
	"regexp"
	"strconv"
	"strings"
)

// labelledFact anchors a catalog entry on the label printed in the report;
// the result is the text that follows it.
type labelledFact struct {
	name    string
	pattern *regexp.Regexp
}

func fact(name, label string) labelledFact {
	return labelledFact{name: name, pattern: regexp.MustCompile(label + `\s+([^\n]+)`)}
}

var healthCatalog = []labelledFact{
	fact("Age-Related Macular Degeneration", `Age-Related Macular Degeneration`),
	fact("Hereditary Hemochromatosis (HFE-Related)", `Hereditary Hemochromatosis\s*\(HFE-Related\)`),
	fact("Late-Onset Alzheimer's Disease", `Late-Onset Alzheimer['’]s Disease`),
	fact("Alpha-1 Antitrypsin Deficiency", `Alpha-1 Antitrypsin Deficiency`),
	fact("BRCA1/BRCA2 (Selected Variants)", `BRCA1/BRCA2\s*\(Selected Variants\)`),
	fact("Celiac Disease", `Celiac Disease`),
	fact("Type 2 Diabetes", `Type 2 Diabetes`),
	fact("Parkinson's Disease", `Parkinson['’]s Disease`),
}

var wellnessCatalog = []labelledFact{
	fact("Alcohol Flush Reaction", `Alcohol Flush Reaction`),
	fact("Caffeine Consumption", `Caffeine Consumption`),
	fact("Deep Sleep", `Deep Sleep`),
	fact("Genetic Weight", `Genetic Weight`),
	fact("Lactose Intolerance", `Lactose Intolerance`),
	fact("Muscle Composition", `Muscle Composition`),
	fact("Saturated Fat and Weight", `Saturated Fat and Weight`),
	fact("Sleep Movement", `Sleep Movement`),
}

var traitCatalog = []labelledFact{
	fact("Eye Color", `Eye Color`),
	fact("Hair Texture", `Hair Texture`),
	fact("Hair Color", `Light or Dark Hair`),
	fact("Skin Pigmentation", `Skin Pigmentation`),
	fact("Freckles", `Freckles`),
	fact("Earlobe Type", `Earlobe Type`),
	fact("Cleft Chin", `Cleft Chin`),
	fact("Wake-Up Time", `Wake-Up Time`),
}

var geneticProviders = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"23andMe", regexp.MustCompile(`(?i)23andme`)},
	{"AncestryDNA", regexp.MustCompile(`(?i)ancestry\s?dna`)},
	{"Invitae", regexp.MustCompile(`(?i)invitae`)},
}

var (
	carrierRegionPattern = regexp.MustCompile(`(?s)Carrier Status Reports(.+?)Wellness Reports`)
	carrierLinePattern   = regexp.MustCompile(`(?m)^[ \t]*([A-Za-z \t\-()]+?)[ \t]+(Variant not detected|Carrier)`)

	europeanPattern     = regexp.MustCompile(`European\s+([\d.]+)%`)
	britishIrishPattern = regexp.MustCompile(`British & Irish\s+([\d.]+)%`)
	frenchGermanPattern = regexp.MustCompile(`French & German\s+([\d.]+)%`)
	maternalPattern     = regexp.MustCompile(`Maternal Haplogroup\s+(\w+)`)
	paternalPattern     = regexp.MustCompile(`Paternal Haplogroup\s+([\w-]+)`)
	neanderthalPattern  = regexp.MustCompile(`Neanderthal Ancestry\s+More Neanderthal variants than (\d+)%`)
)

func extractGenetic(text string) GeneticReport {
	var report GeneticReport

	for _, p := range geneticProviders {
		if p.pattern.MatchString(text) {
			report.Provider = p.name
			break
		}
	}

	for _, f := range healthCatalog {
		if result, ok := f.find(text); ok {
			lower := strings.ToLower(result)
			report.HealthPredispositions = append(report.HealthPredispositions, HealthFinding{
				Condition:       f.name,
				Result:          result,
				VariantDetected: strings.Contains(lower, "variant detected") || strings.Contains(lower, "increased risk"),
			})
		}
	}

	if region := carrierRegionPattern.FindStringSubmatch(text); region != nil {
		for _, m := range carrierLinePattern.FindAllStringSubmatch(region[1], -1) {
			condition := strings.TrimSpace(m[1])
			if len(condition) <= 3 || strings.HasPrefix(condition, "https") {
				continue
			}
			report.CarrierStatus = append(report.CarrierStatus, CarrierFinding{
				Condition: condition,
				Status:    m[2],
				IsCarrier: m[2] == "Carrier",
			})
		}
	}

	report.Wellness = findTraits(text, wellnessCatalog)
	report.Traits = findTraits(text, traitCatalog)
	report.Ancestry = extractAncestry(text)
	return report
}

func extractAncestry(text string) Ancestry {
	var a Ancestry
	a.European = findPercent(europeanPattern, text)
	a.BritishIrish = findPercent(britishIrishPattern, text)
	a.FrenchGerman = findPercent(frenchGermanPattern, text)
	if m := maternalPattern.FindStringSubmatch(text); m != nil {
		a.MaternalHaplogroup = m[1]
	}
	if m := paternalPattern.FindStringSubmatch(text); m != nil {
		a.PaternalHaplogroup = m[1]
	}
	if m := neanderthalPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			a.NeanderthalPercentile = &n
		}
	}
	return a
}

func (f labelledFact) find(text string) (string, bool) {
	m := f.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	result := strings.TrimSpace(m[1])
	return result, result != ""
}

func findTraits(text string, catalog []labelledFact) []TraitFinding {
	var out []TraitFinding
	for _, f := range catalog {
		if result, ok := f.find(text); ok {
			out = append(out, TraitFinding{Trait: f.name, Result: result})
		}
	}
	return out
}

func findPercent(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	if n, ok := parseNumber(m[1]); ok {
		return &n
	}
	return nil
}
