package records

import "strings"

const CategoryOther = "other"

type categoryRule struct {
	category string
	keywords []string
}

// categoryRules is evaluated in order against the lower-cased test name;
// the first rule with a matching keyword assigns the category.
var categoryRules = []categoryRule{
	{"hematology", []string{"wbc", "rbc", "hemoglobin", "hematocrit", "platelet", "neutrophil", "lymph", "mono", "eos", "baso", "mcv", "mch"}},
	{"metabolic", []string{"glucose", "bun", "creatinine", "sodium", "potassium", "chloride", "carbon dioxide", "calcium", "phosphorus", "magnesium", "egfr"}},
	{"liver", []string{"albumin", "protein", "bilirubin", "alkaline", "ast", "alt", "ggt", "ldh"}},
	{"lipid", []string{"cholesterol", "triglyceride", "hdl", "ldl", "vldl", "lipid"}},
	{"thyroid", []string{"tsh", "thyroid", "t4", "t3", "tpo"}},
	{"vitamins_minerals", []string{"vitamin", "b12", "folate", "iron", "ferritin", "tibc"}},
	{"inflammatory_markers", []string{"crp", "esr", "sed rate", "sedimentation"}},
	{"autoimmune", []string{"ana", "anti-", "rf", "rheumatoid", "complement", "hla", "smith", "ss-a", "ss-b", "ccp"}},
	{"infectious_disease", []string{"hep", "hiv", "ebv", "lyme", "quantiferon", "hbsag", "hcv"}},
	{"urinalysis", []string{"urin", "wbc esterase", "specific gravity", "ph", "ketone", "nitrite", "protein/creat", "albumin/creat"}},
	{"coagulation", []string{"factor", "antiphospholipid", "anticardiolipin"}},
	{"specialty", []string{"creatine kinase", "ck", "aldosterone", "renin", "homocysteine", "osteocalcin"}},
}

// Categorize assigns a test name to exactly one category.
func Categorize(testName string) string {
	name := strings.ToLower(testName)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

type labKey struct {
	name, date, raw string
}

// DedupLabs keeps the first result for each test name, date and raw value.
func DedupLabs(labs []LabResult) []LabResult {
	seen := make(map[labKey]struct{}, len(labs))
	out := make([]LabResult, 0, len(labs))
	for _, lab := range labs {
		key := labKey{lab.TestName, lab.DateCollected.Text, lab.Value.Raw}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, lab)
	}
	return out
}

type allergyKey struct {
	code, date string
}

// DedupAllergies keeps the first result for each allergen code and date.
func DedupAllergies(allergies []AllergenResult) []AllergenResult {
	seen := make(map[allergyKey]struct{}, len(allergies))
	out := make([]AllergenResult, 0, len(allergies))
	for _, a := range allergies {
		key := allergyKey{a.Code, a.DateCollected.Text}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// GroupByCategory sets Category on each result and groups them, keeping
// input order within a group.
func GroupByCategory(labs []LabResult) map[string][]LabResult {
	groups := make(map[string][]LabResult)
	for i := range labs {
		labs[i].Category = Categorize(labs[i].TestName)
		groups[labs[i].Category] = append(groups[labs[i].Category], labs[i])
	}
	return groups
}

// PartitionAllergies splits results into environmental and food allergens.
// Screening totals belong to neither.
func PartitionAllergies(allergies []AllergenResult) (environmental, foods []AllergenResult) {
	environmental = []AllergenResult{}
	foods = []AllergenResult{}
	for _, a := range allergies {
		switch {
		case environmentalCategories[a.Category]:
			environmental = append(environmental, a)
		case a.Category == CategoryFoods:
			foods = append(foods, a)
		}
	}
	return environmental, foods
}
