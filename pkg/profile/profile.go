package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Name is the patient's name as printed on their records.
type Name struct {
	First  string `yaml:"first" json:"first"`
	Middle string `yaml:"middle" json:"middle"`
	Last   string `yaml:"last" json:"last"`
}

// Profile holds the facts about a patient that are supplied by the caller
// rather than extracted. Cities and State narrow address matching.
type Profile struct {
	Name        Name     `yaml:"name" json:"name"`
	DateOfBirth string   `yaml:"date_of_birth" json:"date_of_birth"`
	Sex         string   `yaml:"sex" json:"sex"`
	Phone       string   `yaml:"phone" json:"phone"`
	Cities      []string `yaml:"cities" json:"cities"`
	State       string   `yaml:"state" json:"state"`
}

var errEmptyProfile = errors.New("patient profile has no name")

// Load reads a YAML profile. An empty path yields the zero profile.
func Load(path string) (Profile, error) {
	if path == "" {
		return Profile{}, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(content, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if p.Name.First == "" && p.Name.Last == "" {
		return Profile{}, errEmptyProfile
	}
	return p, nil
}

// FullName renders "First M. Last", abbreviating a single-letter middle name.
func (p Profile) FullName() string {
	parts := make([]string, 0, 3)
	if p.Name.First != "" {
		parts = append(parts, p.Name.First)
	}
	if m := strings.TrimSuffix(p.Name.Middle, "."); m != "" {
		if len(m) == 1 {
			m += "."
		}
		parts = append(parts, m)
	}
	if p.Name.Last != "" {
		parts = append(parts, p.Name.Last)
	}
	return strings.Join(parts, " ")
}
