package records

import (
	"regexp"
	"strings"

	"github.com/synaptica-ai/medrecords/pkg/profile"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	patientIDPattern = regexp.MustCompile(`Patient ID:\s*(\w+)`)
	mrnPattern       = regexp.MustCompile(`MRN:\s*(\d+)`)
)

const streetSuffixes = `DR|AVE|BLVD|ST|CIR|PKWY|RD|LN|CT|WAY`

// compileAddressPattern builds the address matcher for a profile. Without
// configured cities or state any city name and two-letter state is accepted.
func compileAddressPattern(p profile.Profile) *regexp.Regexp {
	city := `[A-Za-z][A-Za-z .]*?`
	if len(p.Cities) > 0 {
		alternatives := make([]string, 0, len(p.Cities))
		for _, c := range p.Cities {
			if words := strings.Fields(c); len(words) > 0 {
				quoted := make([]string, len(words))
				for i, w := range words {
					quoted[i] = regexp.QuoteMeta(w)
				}
				alternatives = append(alternatives, strings.Join(quoted, `\s+`))
			}
		}
		if len(alternatives) > 0 {
			city = strings.Join(alternatives, "|")
		}
	}
	state := `[A-Z]{2}`
	if s := strings.TrimSpace(p.State); s != "" {
		state = regexp.QuoteMeta(s)
	}
	return regexp.MustCompile(`(?i)(\d+\s+[A-Z][A-Za-z ]*?\s(?:` + streetSuffixes + `)\b\.?(?:\s*(?:UNIT|APT|STE|#)\s*\d+)?),?\s+(` + city + `),?\s+(` + state + `),?\s*(\d{5})\b`)
}

func (p *Pipeline) extractPatient(text string) PatientIdentity {
	prof := p.opts.Profile
	id := PatientIdentity{
		Name: PersonName{
			First:  prof.Name.First,
			Middle: strings.TrimSuffix(prof.Name.Middle, "."),
			Last:   prof.Name.Last,
			Full:   prof.FullName(),
		},
		DateOfBirth: NormalizeDate(prof.DateOfBirth),
		Sex:         prof.Sex,
		Phone:       prof.Phone,
		Addresses:   []Address{},
	}

	// Casers carry state and are not shared across calls.
	title := cases.Title(language.English)
	seen := make(map[Address]bool)
	for _, m := range p.addressPattern.FindAllStringSubmatch(text, -1) {
		addr := Address{
			Street: collapseSpace(m[1]),
			City:   title.String(strings.ToLower(collapseSpace(m[2]))),
			State:  strings.ToUpper(m[3]),
			Zip:    m[4],
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		id.Addresses = append(id.Addresses, addr)
	}

	id.PatientIDs = uniqueCaptures(patientIDPattern, text)
	id.MRNs = uniqueCaptures(mrnPattern, text)
	return id
}

// uniqueCaptures returns the first group of every match, deduplicated in
// order of first appearance.
func uniqueCaptures(re *regexp.Regexp, text string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}
