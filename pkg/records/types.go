package records

import (
	"encoding/json"
	"time"
)

// Flag is the canonical marker a lab prints next to an out-of-range value.
// Unrecognized non-empty tokens are kept verbatim.
type Flag string

const (
	FlagHigh     Flag = "High"
	FlagLow      Flag = "Low"
	FlagAbnormal Flag = "Abnormal"
	FlagCritical Flag = "Critical"
)

// Date is either a canonical ISO date (Parsed) or the trimmed source text.
type Date struct {
	Text   string
	Parsed bool
}

func (d Date) IsZero() bool { return d.Text == "" }

func (d Date) String() string { return d.Text }

// Time returns the parsed calendar date. ok is false for raw passthroughs.
func (d Date) Time() (time.Time, bool) {
	if !d.Parsed {
		return time.Time{}, false
	}
	t, err := time.Parse(isoDate, d.Text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.Text == "" {
		return []byte("null"), nil
	}
	return json.Marshal(d.Text)
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*d = Date{}
		return nil
	}
	*d = NormalizeDate(*s)
	return nil
}

// Value is a lab or allergen reading. Number is set when the reading is
// numeric; Text holds qualitative readings. Raw is always the source token.
type Value struct {
	Number    *float64
	Text      string
	Qualifier string
	Raw       string
}

// Structured reports whether the reading was interpreted as a number.
func (v Value) Structured() bool { return v.Number != nil }

type valueJSON struct {
	Value     interface{} `json:"value,omitempty"`
	Qualifier string      `json:"qualifier,omitempty"`
	Raw       string      `json:"raw"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Qualifier: v.Qualifier, Raw: v.Raw}
	switch {
	case v.Number != nil:
		out.Value = *v.Number
	case v.Text != "":
		out.Value = v.Text
	}
	return json.Marshal(out)
}

// UnmarshalJSON re-derives the reading from its raw token.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*v = NormalizeValue(in.Raw)
	return nil
}

type RangeKind string

const (
	RangeNotEstablished RangeKind = "not_established"
	RangeBounded        RangeKind = "bounded"
	RangeLowerBound     RangeKind = "lower_bound"
	RangeUpperBound     RangeKind = "upper_bound"
	RangeQualitative    RangeKind = "qualitative"
	RangeRaw            RangeKind = "raw"
)

type ReferenceRange struct {
	Kind     RangeKind `json:"kind"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Expected string    `json:"expected,omitempty"`
	Raw      string    `json:"raw,omitempty"`
}

func (r ReferenceRange) Established() bool { return r.Kind != RangeNotEstablished }

// LabCodes are the terminology codes attached to a recognised test.
type LabCodes struct {
	Display string `json:"display,omitempty"`
	LOINC   string `json:"loinc,omitempty"`
	SNOMED  string `json:"snomed,omitempty"`
}

type LabResult struct {
	TestName          string          `json:"test_name"`
	Value             Value           `json:"value"`
	Units             string          `json:"units,omitempty"`
	ReferenceRange    *ReferenceRange `json:"reference_range,omitempty"`
	Flag              Flag            `json:"flag,omitempty"`
	DateCollected     Date            `json:"date_collected"`
	Panel             string          `json:"panel,omitempty"`
	OrderingPhysician string          `json:"ordering_physician,omitempty"`
	SpecimenID        string          `json:"specimen_id,omitempty"`
	SourceFormat      string          `json:"source_format"`
	Category          string          `json:"category,omitempty"`
	Codes             *LabCodes       `json:"codes,omitempty"`
}

type AllergenResult struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Value          Value           `json:"value"`
	Units          string          `json:"units,omitempty"`
	Class          *int            `json:"class,omitempty"`
	ClassText      string          `json:"class_text,omitempty"`
	Interpretation string          `json:"interpretation,omitempty"`
	DateCollected  Date            `json:"date_collected"`
	IsPositive     bool            `json:"is_positive"`
	IsScreening    bool            `json:"is_screening,omitempty"`
	ReferenceRange *ReferenceRange `json:"reference_range,omitempty"`
}

type HealthFinding struct {
	Condition       string `json:"condition"`
	Result          string `json:"result"`
	VariantDetected bool   `json:"variant_detected"`
}

type CarrierFinding struct {
	Condition string `json:"condition"`
	Status    string `json:"status"`
	IsCarrier bool   `json:"is_carrier"`
}

type TraitFinding struct {
	Trait  string `json:"trait"`
	Result string `json:"result"`
}

type Ancestry struct {
	European              *float64 `json:"european,omitempty"`
	BritishIrish          *float64 `json:"british_irish,omitempty"`
	FrenchGerman          *float64 `json:"french_german,omitempty"`
	MaternalHaplogroup    string   `json:"maternal_haplogroup,omitempty"`
	PaternalHaplogroup    string   `json:"paternal_haplogroup,omitempty"`
	NeanderthalPercentile *int     `json:"neanderthal_percentile,omitempty"`
}

type GeneticReport struct {
	Provider              string           `json:"provider,omitempty"`
	HealthPredispositions []HealthFinding  `json:"health_predispositions,omitempty"`
	CarrierStatus         []CarrierFinding `json:"carrier_status,omitempty"`
	Wellness              []TraitFinding   `json:"wellness,omitempty"`
	Ancestry              Ancestry         `json:"ancestry"`
	Traits                []TraitFinding   `json:"traits,omitempty"`
}

type ImagingReport struct {
	Type               string `json:"type"`
	Procedure          string `json:"procedure"`
	CPTCode            string `json:"cpt_code,omitempty"`
	ClinicalIndication string `json:"clinical_indication,omitempty"`
	Status             string `json:"status,omitempty"`
	ICD10Code          string `json:"icd10_code,omitempty"`
	ICD10Description   string `json:"icd10_description,omitempty"`
}

type Diagnosis struct {
	Label   string `json:"label"`
	Site    string `json:"site"`
	Finding string `json:"finding"`
	Comment string `json:"comment,omitempty"`
}

type PathologyReport struct {
	Type          string      `json:"type"`
	PatientName   string      `json:"patient_name,omitempty"`
	Accession     string      `json:"accession"`
	DateCollected Date        `json:"date_collected"`
	Diagnoses     []Diagnosis `json:"diagnoses"`
}

// Measurement is an integer count or percentage read from a fluid panel.
type Measurement struct {
	Value          *int            `json:"value,omitempty"`
	Raw            string          `json:"raw"`
	Units          string          `json:"units"`
	ReferenceRange *ReferenceRange `json:"reference_range,omitempty"`
}

type Differential struct {
	Neutrophils  Measurement `json:"neutrophils"`
	Lymphocytes  Measurement `json:"lymphocytes"`
	Mononuclears Measurement `json:"mononuclears"`
	Basophils    Measurement `json:"basophils"`
}

type SynovialFluidAnalysis struct {
	CollectedOn        string       `json:"collected_on"`
	DateCollected      Date         `json:"date_collected"`
	Source             string       `json:"source"`
	NucleatedCellCount Measurement  `json:"nucleated_cell_count"`
	RBCCount           Measurement  `json:"rbc_count"`
	Differential       Differential `json:"differential"`
	Interpretation     string       `json:"interpretation,omitempty"`
}

type Medication struct {
	Name      string `json:"name"`
	Brand     string `json:"brand,omitempty"`
	Dose      string `json:"dose,omitempty"`
	Form      string `json:"form,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Route     string `json:"route,omitempty"`
}

type Vitals struct {
	BloodPressure    string   `json:"blood_pressure,omitempty"`
	BMI              *float64 `json:"bmi,omitempty"`
	WeightLbs        *int     `json:"weight_lbs,omitempty"`
	Height           string   `json:"height,omitempty"`
	TemperatureF     *float64 `json:"temperature_f,omitempty"`
	Pulse            *int     `json:"pulse,omitempty"`
	Respiration      *int     `json:"respiration,omitempty"`
	OxygenSaturation *int     `json:"oxygen_saturation,omitempty"`
}

// Complete reports whether the snapshot came from a full vitals block
// rather than the blood pressure and BMI printed in a visit header.
func (v *Vitals) Complete() bool {
	return v != nil && v.WeightLbs != nil
}

type VisitSummary struct {
	PatientHeader string  `json:"patient_header,omitempty"`
	VisitReason   string  `json:"visit_reason,omitempty"`
	Vitals        *Vitals `json:"vitals,omitempty"`
}

type ClinicalNote struct {
	Type    string   `json:"type"`
	Content string   `json:"content,omitempty"`
	Items   []string `json:"items,omitempty"`
}

type PersonName struct {
	First  string `json:"first,omitempty"`
	Middle string `json:"middle,omitempty"`
	Last   string `json:"last,omitempty"`
	Full   string `json:"full,omitempty"`
}

type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

type PatientIdentity struct {
	Name        PersonName `json:"name"`
	DateOfBirth Date       `json:"date_of_birth"`
	Sex         string     `json:"sex,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Addresses   []Address  `json:"addresses"`
	PatientIDs  []string   `json:"patient_ids"`
	MRNs        []string   `json:"mrns"`
}

// ParseContext is the label state carried from page to page. A field keeps
// its value until a later page overwrites it.
type ParseContext struct {
	DateCollected Date
	Panel         string
	Physician     string
	SpecimenID    string
}
