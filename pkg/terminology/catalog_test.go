package terminology

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchByKeyAliasAndDisplay(t *testing.T) {
	cat := DefaultCatalog()

	cases := map[string]string{
		"WBC":                "6690-2",
		"wbc":                "6690-2",
		"Platelet Count":     "777-3",
		"Erythrocytes":       "789-8",
		"Cholesterol, Total": "2093-3",
	}
	for name, want := range cases {
		concept, ok := cat.Match(name)
		if !ok {
			t.Fatalf("expected %q to resolve", name)
		}
		if concept.LOINC != want {
			t.Fatalf("%q: got LOINC %s, want %s", name, concept.LOINC, want)
		}
	}

	if _, ok := cat.Match("Fluid Basophils"); ok {
		t.Fatal("unexpected match for unknown test")
	}
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := []byte(`concepts:
  homocysteine:
    display: Homocysteine
    loinc: 13965-9
    aliases: [Homocyst(e)ine]
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	concept, ok := cat.Match("Homocyst(e)ine")
	if !ok || concept.LOINC != "13965-9" {
		t.Fatalf("unexpected concept %+v", concept)
	}
}

func TestLoadEmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("concepts: {}\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
