package records

import "testing"

func TestMatchLabLineFormats(t *testing.T) {
	ctx := ParseContext{DateCollected: NormalizeDate("01/15/2020"), Panel: "CBC With Differential/Platelet"}

	cases := []struct {
		line      string
		format    string
		name      string
		units     string
		rangeKind RangeKind
		flag      Flag
	}{
		{"WBC 01 6.5 x10E3/uL 3.4-10.8", FormatLabcorp, "WBC", "x10E3/uL", RangeBounded, ""},
		{"Glucose 01 105 High 98 01/02/2019 mg/dL 65-99", FormatLabcorp, "Glucose", "mg/dL", RangeBounded, FlagHigh},
		{"eGFR 01 98 mL/min/1.73 >59", FormatLabcorp, "eGFR", "mL/min/1.73", RangeLowerBound, ""},
		{"Lymphs 01 30 % Not Estab.", FormatLabcorp, "Lymphs", "%", RangeNotEstablished, ""},
		{"HIV Screen 01 Non Reactive Non Reactive", FormatLabcorp, "HIV Screen", "", RangeQualitative, ""},
		{"Hemoglobin 01 12.1 L 13.0-17.7", FormatLabcorp, "Hemoglobin", "", RangeBounded, FlagLow},
		{"TSH 2.50 Reference Range: 0.40-4.50 mIU/L", FormatQuest, "TSH", "mIU/L", RangeBounded, ""},
		{"FERRITIN 420 H Reference Range: 38-380 ng/mL", FormatQuest, "FERRITIN", "ng/mL", RangeBounded, FlagHigh},
	}

	for _, tc := range cases {
		acc := newAccumulator()
		format, ok := matchLabLine(tc.line, ctx, acc)
		if !ok || format != tc.format {
			t.Fatalf("%q: matched %q (ok=%v), want %q", tc.line, format, ok, tc.format)
		}
		if len(acc.labs) != 1 {
			t.Fatalf("%q: expected one lab result, got %d", tc.line, len(acc.labs))
		}
		lab := acc.labs[0]
		if lab.TestName != tc.name || lab.Units != tc.units || lab.Flag != tc.flag {
			t.Fatalf("%q: unexpected result %+v", tc.line, lab)
		}
		if lab.ReferenceRange == nil || lab.ReferenceRange.Kind != tc.rangeKind {
			t.Fatalf("%q: unexpected reference range %+v", tc.line, lab.ReferenceRange)
		}
		if lab.DateCollected.Text != "2020-01-15" || lab.Panel != ctx.Panel || lab.SourceFormat != tc.format {
			t.Fatalf("%q: context not carried: %+v", tc.line, lab)
		}
	}
}

func TestMatchLabLineRoutesAllergensAway(t *testing.T) {
	acc := newAccumulator()
	format, ok := matchLabLine("D1-IgE Dust Mite 01 0.05 kU/L Class 0", ParseContext{}, acc)
	if !ok || format != FormatAllergen {
		t.Fatalf("expected allergen format, got %q (ok=%v)", format, ok)
	}
	if len(acc.labs) != 0 {
		t.Fatalf("allergen line must not produce a lab result, got %+v", acc.labs)
	}
	if len(acc.allergies) != 1 || acc.allergies[0].Name != "Dust Mite" {
		t.Fatalf("unexpected allergies %+v", acc.allergies)
	}
}

func TestMatchLabLineRejectsNoiseAndFalsePositives(t *testing.T) {
	lines := []string{
		"Test Current Result and Flag Previous Result and Date Units Reference Interval",
		"© 1995-2024 Laboratory Corporation of America Holdings",
		"Pg 01 5",
		"Page 2 01 3",
		"Date Collected: 01/15/2020",
		"",
	}
	for _, line := range lines {
		acc := newAccumulator()
		if format, ok := matchLabLine(line, ParseContext{}, acc); ok {
			t.Fatalf("%q: unexpected match %q", line, format)
		}
		if len(acc.labs) != 0 || len(acc.allergies) != 0 {
			t.Fatalf("%q: unexpected output", line)
		}
	}
}

func TestSplitTrailer(t *testing.T) {
	units, ref := splitTrailer("  ")
	if units != "" || ref != "" {
		t.Fatalf("expected nothing from blank trailer, got %q %q", units, ref)
	}
	units, ref = splitTrailer("ng/mL")
	if units != "ng/mL" || ref != "" {
		t.Fatalf("unexpected split %q %q", units, ref)
	}
}
