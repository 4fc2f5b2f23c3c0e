package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Concept struct {
	Display string   `yaml:"display" json:"display"`
	SNOMED  string   `yaml:"snomed" json:"snomed"`
	LOINC   string   `yaml:"loinc" json:"loinc"`
	Aliases []string `yaml:"aliases" json:"aliases,omitempty"`
}

type Catalog struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Concepts) == 0 {
		return Catalog{}, fmt.Errorf("terminology catalog empty")
	}
	return cat, nil
}

func (c Catalog) Lookup(key string) (Concept, bool) {
	if c.Concepts == nil {
		return Concept{}, false
	}
	concept, ok := c.Concepts[strings.ToLower(key)]
	if ok {
		return concept, true
	}
	for k, v := range c.Concepts {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return Concept{}, false
}

// Match resolves a lab test name as printed on a report. Keys are tried
// first, then display names and aliases, all case-insensitively.
func (c Catalog) Match(testName string) (Concept, bool) {
	name := strings.TrimSpace(testName)
	if name == "" {
		return Concept{}, false
	}
	if concept, ok := c.Lookup(name); ok {
		return concept, true
	}
	for _, concept := range c.Concepts {
		if strings.EqualFold(concept.Display, name) {
			return concept, true
		}
		for _, alias := range concept.Aliases {
			if strings.EqualFold(alias, name) {
				return concept, true
			}
		}
	}
	return Concept{}, false
}

func DefaultCatalog() Catalog {
	return Catalog{Concepts: map[string]Concept{
		"wbc":                       {Display: "Leukocytes", LOINC: "6690-2", SNOMED: "767002", Aliases: []string{"White Blood Cell Count"}},
		"rbc":                       {Display: "Erythrocytes", LOINC: "789-8", SNOMED: "14089001", Aliases: []string{"Red Blood Cell Count"}},
		"hemoglobin":                {Display: "Hemoglobin", LOINC: "718-7", SNOMED: "38082009"},
		"hematocrit":                {Display: "Hematocrit", LOINC: "4544-3", SNOMED: "28317006"},
		"platelets":                 {Display: "Platelets", LOINC: "777-3", SNOMED: "61928009", Aliases: []string{"Platelet Count"}},
		"glucose":                   {Display: "Glucose", LOINC: "2345-7", SNOMED: "33747003"},
		"creatinine":                {Display: "Creatinine", LOINC: "2160-0", SNOMED: "113075003"},
		"sodium":                    {Display: "Sodium", LOINC: "2951-2", SNOMED: "25197003"},
		"potassium":                 {Display: "Potassium", LOINC: "2823-3", SNOMED: "59573005"},
		"tsh":                       {Display: "Thyrotropin", LOINC: "3016-3", SNOMED: "61167004"},
		"cholesterol, total":        {Display: "Cholesterol", LOINC: "2093-3", SNOMED: "77068002", Aliases: []string{"Total Cholesterol"}},
		"triglycerides":             {Display: "Triglyceride", LOINC: "2571-8", SNOMED: "85600001"},
		"hdl cholesterol":           {Display: "HDL Cholesterol", LOINC: "2085-9", SNOMED: "17888004", Aliases: []string{"HDL"}},
		"ferritin":                  {Display: "Ferritin", LOINC: "2276-4", SNOMED: "20567001"},
		"vitamin b12":               {Display: "Cobalamin", LOINC: "2132-9", SNOMED: "14598005"},
		"c-reactive protein, quant": {Display: "C reactive protein", LOINC: "1988-5", SNOMED: "55235003", Aliases: []string{"CRP"}},
		"alt (sgpt)":                {Display: "Alanine aminotransferase", LOINC: "1742-6", SNOMED: "34608000", Aliases: []string{"ALT"}},
		"ast (sgot)":                {Display: "Aspartate aminotransferase", LOINC: "1920-8", SNOMED: "45896001", Aliases: []string{"AST"}},
	}}
}
