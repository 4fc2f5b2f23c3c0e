package records

import (
	"regexp"
	"strconv"
	"strings"
)

// allergenExpr matches "<letter><n>-IgE <name> 0<d> <value> <units> Class <N>".
const allergenExpr = `([DEGIMTWF]\d+)-IgE[ \t]+([A-Za-z][A-Za-z \t,/]+?)[ \t]+0\d[ \t]+([<>]?[\d.]+)[ \t]+(\w+/\w+)[ \t]+Class[ \t]+(0/I|\d)`

var (
	allergenPattern = regexp.MustCompile(allergenExpr)
	totalIgEPattern = regexp.MustCompile(`Immunoglobulin E,\s*Total\s+0\d\s+(\d+)\s+(\w+/\w+)\s+([\d-]+)`)
)

const (
	CategoryTotalIgE = "Total IgE"
	CategoryFoods    = "Foods"
	CategoryUnknown  = "Unknown"
)

var allergenCategories = map[byte]string{
	'D': "Dust Mites",
	'E': "Animal Dander",
	'G': "Grasses",
	'I': "Insects",
	'M': "Molds",
	'T': "Trees",
	'W': "Weeds",
	'F': CategoryFoods,
}

var environmentalCategories = map[string]bool{
	"Dust Mites":    true,
	"Animal Dander": true,
	"Grasses":       true,
	"Insects":       true,
	"Molds":         true,
	"Trees":         true,
	"Weeds":         true,
}

var classInterpretations = map[string]string{
	"0":   "Negative",
	"0/I": "Equivocal/Low",
	"1":   "Low",
	"2":   "Moderate",
	"3":   "High",
	"4":   "Very High",
	"5":   "Very High",
	"6":   "Very High",
}

func newAllergen(code, name, value, units, classText string, date Date) AllergenResult {
	category, ok := allergenCategories[code[0]]
	if !ok {
		category = CategoryUnknown
	}
	interpretation, ok := classInterpretations[classText]
	if !ok {
		interpretation = CategoryUnknown
	}

	result := AllergenResult{
		Code:           code,
		Name:           collapseSpace(name),
		Category:       category,
		Value:          NormalizeValue(value),
		Units:          units,
		ClassText:      classText,
		Interpretation: interpretation,
		DateCollected:  date,
	}
	// "0/I" is reported as class 0.
	if class, err := strconv.Atoi(strings.TrimSuffix(classText, "/I")); err == nil {
		result.Class = &class
		result.IsPositive = class > 0
	}
	return result
}

// extractAllergies scans the whole document. Each match takes its collection
// date from the context of the page its offset falls on.
func extractAllergies(text string, pages []Page, contexts []ParseContext, acc *accumulator) {
	for _, loc := range allergenPattern.FindAllStringSubmatchIndex(text, -1) {
		m := submatches(text, loc)
		ctx := contexts[pageAt(pages, loc[0])]
		acc.allergies = append(acc.allergies, newAllergen(m[1], m[2], m[3], m[4], m[5], ctx.DateCollected))
	}

	for _, loc := range totalIgEPattern.FindAllStringSubmatchIndex(text, -1) {
		m := submatches(text, loc)
		ctx := contexts[pageAt(pages, loc[0])]
		rr := NormalizeReferenceRange(m[3])
		acc.allergies = append(acc.allergies, AllergenResult{
			Code:           "Total_IgE",
			Name:           "Immunoglobulin E, Total",
			Category:       CategoryTotalIgE,
			Value:          NormalizeValue(m[1]),
			Units:          m[2],
			DateCollected:  ctx.DateCollected,
			IsScreening:    true,
			ReferenceRange: &rr,
		})
	}
}
