package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patient.yaml")
	content := []byte(`name:
  first: Jordan
  middle: Q
  last: Rivera
date_of_birth: 03/14/1980
sex: Female
phone: 555-010-2000
cities: [San Diego, La Jolla]
state: CA
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if got := p.FullName(); got != "Jordan Q. Rivera" {
		t.Fatalf("unexpected full name %q", got)
	}
	if len(p.Cities) != 2 || p.State != "CA" {
		t.Fatalf("unexpected address filters %v %q", p.Cities, p.State)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FullName() != "" {
		t.Fatalf("expected zero profile, got %+v", p)
	}
}

func TestLoadRejectsNamelessProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patient.yaml")
	if err := os.WriteFile(path, []byte("sex: Male\n"), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for profile without a name")
	}
}
