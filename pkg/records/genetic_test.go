package records

import "testing"

const geneticSample = `23andMe Health + Ancestry Report
Health Predisposition Reports
Hereditary Hemochromatosis (HFE-Related) Variant detected, not likely at increased risk
Celiac Disease Variant not detected
Type 2 Diabetes Typical likelihood
Carrier Status Reports
Cystic Fibrosis Variant not detected
Sickle Cell Anemia Carrier
https link Variant not detected
BS Carrier
Wellness Reports
Lactose Intolerance Likely tolerant
Ancestry Composition
European 99.2%
British & Irish 60.1%
Maternal Haplogroup H1c
Paternal Haplogroup R-M269
Neanderthal Ancestry More Neanderthal variants than 62% of customers
Traits
Eye Color Likely brown
Light or Dark Hair Likely dark
`

func TestExtractGenetic(t *testing.T) {
	report := extractGenetic(geneticSample)

	if report.Provider != "23andMe" {
		t.Fatalf("unexpected provider %q", report.Provider)
	}

	if len(report.HealthPredispositions) != 3 {
		t.Fatalf("expected 3 health findings, got %+v", report.HealthPredispositions)
	}
	byCondition := map[string]HealthFinding{}
	for _, h := range report.HealthPredispositions {
		byCondition[h.Condition] = h
	}
	if !byCondition["Hereditary Hemochromatosis (HFE-Related)"].VariantDetected {
		t.Fatal("expected hemochromatosis variant to be detected")
	}
	if byCondition["Celiac Disease"].VariantDetected {
		t.Fatal("variant not detected must not count as detected")
	}

	if len(report.CarrierStatus) != 2 {
		t.Fatalf("expected 2 carrier entries, got %+v", report.CarrierStatus)
	}
	if report.CarrierStatus[0].Condition != "Cystic Fibrosis" || report.CarrierStatus[0].IsCarrier {
		t.Fatalf("unexpected first carrier entry %+v", report.CarrierStatus[0])
	}
	if report.CarrierStatus[1].Condition != "Sickle Cell Anemia" || !report.CarrierStatus[1].IsCarrier {
		t.Fatalf("unexpected second carrier entry %+v", report.CarrierStatus[1])
	}

	if len(report.Wellness) != 1 || report.Wellness[0].Result != "Likely tolerant" {
		t.Fatalf("unexpected wellness %+v", report.Wellness)
	}

	a := report.Ancestry
	if a.European == nil || *a.European != 99.2 || a.BritishIrish == nil || *a.BritishIrish != 60.1 {
		t.Fatalf("unexpected ancestry percentages %+v", a)
	}
	if a.FrenchGerman != nil {
		t.Fatal("absent ancestry facts must stay unset")
	}
	if a.MaternalHaplogroup != "H1c" || a.PaternalHaplogroup != "R-M269" {
		t.Fatalf("unexpected haplogroups %+v", a)
	}
	if a.NeanderthalPercentile == nil || *a.NeanderthalPercentile != 62 {
		t.Fatalf("unexpected neanderthal percentile %v", a.NeanderthalPercentile)
	}

	if len(report.Traits) != 2 || report.Traits[1].Trait != "Hair Color" {
		t.Fatalf("unexpected traits %+v", report.Traits)
	}
}

func TestExtractGeneticWithoutReport(t *testing.T) {
	report := extractGenetic("WBC 01 6.5 x10E3/uL 3.4-10.8")
	if report.Provider != "" || len(report.HealthPredispositions) != 0 || len(report.CarrierStatus) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
