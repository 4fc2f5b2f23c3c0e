package records

import (
	"regexp"
	"sort"
	"strings"
)

// Page is one segment of the source between page markers. Offset is the
// byte position of Text within the full document.
type Page struct {
	Index  int
	Text   string
	Offset int
}

var pageMarker = regexp.MustCompile(`=== PAGE \d+ ===`)

// SplitPages cuts text on page markers. Text before the first marker is
// page zero, so a document always has at least one page.
func SplitPages(text string) []Page {
	locs := pageMarker.FindAllStringIndex(text, -1)
	pages := make([]Page, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		pages = append(pages, Page{Index: len(pages), Text: text[start:loc[0]], Offset: start})
		start = loc[1]
	}
	return append(pages, Page{Index: len(pages), Text: text[start:], Offset: start})
}

// pageAt returns the index of the page containing offset.
func pageAt(pages []Page, offset int) int {
	i := sort.Search(len(pages), func(i int) bool { return pages[i].Offset > offset }) - 1
	if i < 0 {
		return 0
	}
	return i
}

var (
	collectedDatePattern = regexp.MustCompile(`Date Collected:\s*(\d{2}/\d{2}/\d{4})`)
	physicianPattern     = regexp.MustCompile(`Ordering Physician:\s*([A-Z]\s+[A-Z]+)`)
	specimenPattern      = regexp.MustCompile(`Specimen ID:\s*([\d\-]+)`)
)

// panelPatterns is ordered by priority, lowest first.
var panelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^(CBC[/\w \t]+)$`),
	regexp.MustCompile(`(?im)^(Basic Metabolic Panel[^\n]*)`),
	regexp.MustCompile(`(?im)^(Comp\.?\s*Metabolic Panel[^\n]*)`),
	regexp.MustCompile(`(?im)^(Hepatic Function Panel[^\n]*)`),
	regexp.MustCompile(`(?im)^(Iron and TIBC)`),
	regexp.MustCompile(`(?im)^(Vitamin B12 and Folate)`),
	regexp.MustCompile(`(?im)^(Lipid Panel[^\n]*)`),
	regexp.MustCompile(`(?im)^(Renal Panel[^\n]*)`),
	regexp.MustCompile(`(?im)^(Urinalysis[^\n]*)`),
	regexp.MustCompile(`(?im)^(Pre-Biologic Screening Profile)`),
	regexp.MustCompile(`(?im)^(RA Profile[^\n]*)`),
	regexp.MustCompile(`(?im)^(Celiac Ab[^\n]*)`),
	regexp.MustCompile(`(?im)^(Thyroid[^\n]*)`),
}

// Advance applies the labels printed on page to ctx. It returns the
// ordering physician named on the page, or "" if there is none.
func (ctx *ParseContext) Advance(page string) string {
	if m := collectedDatePattern.FindStringSubmatch(page); m != nil {
		ctx.DateCollected = NormalizeDate(m[1])
	}

	var physician string
	if m := physicianPattern.FindStringSubmatch(page); m != nil {
		physician = strings.TrimSpace(m[1])
		ctx.Physician = physician
	}

	if m := specimenPattern.FindStringSubmatch(page); m != nil {
		ctx.SpecimenID = m[1]
	}

	// Later entries in panelPatterns take priority over earlier ones.
	for _, re := range panelPatterns {
		if m := re.FindStringSubmatch(page); m != nil {
			ctx.Panel = strings.TrimSpace(m[1])
		}
	}

	return physician
}

// trackContexts threads one ParseContext through the pages in order and
// returns the snapshot in force on each page.
func trackContexts(pages []Page, acc *accumulator) []ParseContext {
	snapshots := make([]ParseContext, len(pages))
	var ctx ParseContext
	for i, page := range pages {
		if physician := ctx.Advance(page.Text); physician != "" {
			acc.addPhysician(physician)
		}
		snapshots[i] = ctx
	}
	return snapshots
}
