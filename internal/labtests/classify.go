// Package labtests turns raw lab-test records into the typed, display-ready
// fields the label export needs. Everything here is a deterministic
// transform with no I/O.
package labtests

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"labelfeed/internal/metrc"
)

// potencyTypeNames is the reference set for cannabinoid measurements. A
// record belongs to the potency view when its test type name equals or
// contains one of these (case-sensitive).
var potencyTypeNames = []string{
	"THC",
	"THCa",
	"THCA",
	"THCV",
	"CBD",
	"CBDa",
	"CBDA",
	"CBDV",
	"CBN",
	"Delta-8",
	"Delta-9",
}

// aromaTypeNames is the reference set for terpene measurements.
var aromaTypeNames = []string{
	"Alpha-Pinene",
	"Beta-Pinene",
	"Beta-Myrcene",
	"Beta-Caryophyllene",
	"Humulene",
	"Limonene",
	"Linalool",
	"Ocimene",
	"Terpinolene",
	"Mandatory Terpenes",
}

// boilerplate phrases the service appends to test type names, removed before
// canonicalization. Longer phrases first so the shorter ones do not leave
// fragments behind.
var boilerplate = []string{
	"Raw Plant Material & PreRolls",
	"Raw Plant Material",
	"& PreRolls",
	"Infused Non-Edible",
	"Infused Edible",
	"Infused Pre-Roll",
	"Mandatory Terpenes",
}

// canonRule maps a case-insensitive substring of a cleaned type name onto
// its canonical compound name. Rules are evaluated in order and the first
// match wins, so more specific compounds (acids, varins) sit above the plain
// forms they contain.
type canonRule struct {
	substr string
	name   string
}

var potencyRules = []canonRule{
	{"cbda", "CBDA"},
	{"cbn", "CBN"},
	{"cbdv", "CBDV"},
	{"cbd", "CBD"},
	{"thca", "THCA"},
	{"thcv", "THCV"},
	{"delta-8 thc", "Delta-8 THC"},
	{"delta-9 thc", "Delta-9 THC"},
	{"thc", "THC"},
}

// PotencyCompounds is the fixed key set of the export potency map. Every
// compound is always reported, defaulting to "0.0" when not measured.
var PotencyCompounds = []string{"THC", "THCA", "CBD", "CBDA", "CBN", "CBDV", "THCV"}

var unitPattern = regexp.MustCompile(`\(([^)]*)\)`)

// Entry is one normalized compound measurement.
type Entry struct {
	Name   string
	Status string // "Passed" or "Failed"
	Value  string // formatted level, including unit or "%" suffix
	Unit   string
	Date   string

	level   float64 // parsed numeric level, 0 when non-numeric
	numeric bool
}

// Results holds the two classified views of a record set.
type Results struct {
	Potency []Entry
	Aroma   []Entry
}

// Classify partitions records into potency and aroma entries. Records
// matching neither reference set are ignored here (they still feed the date
// derivation, which looks at the full record set). Potency entries with a
// missing or "N/A" level are dropped; aroma entries are additionally dropped
// at level zero and sorted by descending level.
func Classify(records []metrc.TestRecord) Results {
	var res Results
	for _, rec := range records {
		if matchesAny(rec.TestTypeName, potencyTypeNames) {
			if e, ok := potencyEntry(rec); ok {
				res.Potency = append(res.Potency, e)
			}
			continue
		}
		if matchesAny(rec.TestTypeName, aromaTypeNames) {
			if e, ok := aromaEntry(rec); ok {
				res.Aroma = append(res.Aroma, e)
			}
		}
	}
	sort.SliceStable(res.Aroma, func(i, j int) bool {
		return res.Aroma[i].level > res.Aroma[j].level
	})
	return res
}

func matchesAny(name string, set []string) bool {
	for _, s := range set {
		if name == s || strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func potencyEntry(rec metrc.TestRecord) (Entry, bool) {
	raw := strings.TrimSpace(rec.TestResultLevel.Raw)
	if raw == "" || raw == metrc.Unavailable {
		return Entry{}, false
	}
	e := Entry{
		Name:   canonicalName(rec.TestTypeName, potencyRules),
		Status: status(rec.TestPassed),
		Unit:   extractUnit(rec.TestTypeName),
		Date:   rec.TestPerformedDate,
	}
	if f, ok := rec.TestResultLevel.Float(); ok {
		e.level = f
		e.numeric = true
		e.Value = fmt.Sprintf("%.2f", f)
		if e.Unit != "" {
			e.Value += " " + e.Unit
		}
	} else {
		// Non-numeric levels (e.g. "ND", "<LOQ") pass through unchanged.
		e.Value = raw
	}
	return e, true
}

func aromaEntry(rec metrc.TestRecord) (Entry, bool) {
	raw := strings.TrimSpace(rec.TestResultLevel.Raw)
	if raw == "" || raw == metrc.Unavailable {
		return Entry{}, false
	}
	e := Entry{
		Name:   aromaName(rec.TestTypeName),
		Status: status(rec.TestPassed),
		Unit:   extractUnit(rec.TestTypeName),
		Date:   rec.TestPerformedDate,
	}
	if f, ok := rec.TestResultLevel.Float(); ok {
		if f == 0 {
			return Entry{}, false
		}
		e.level = f
		e.numeric = true
		e.Value = fmt.Sprintf("%.2f%%", f)
	} else {
		e.Value = raw
	}
	return e, true
}

func status(passed bool) string {
	if passed {
		return "Passed"
	}
	return "Failed"
}

// extractUnit returns the contents of the first parenthesized group in a
// test type name, e.g. "mg/unit" out of "Total THC (mg/unit) ...".
func extractUnit(typeName string) string {
	m := unitPattern.FindStringSubmatch(typeName)
	if m == nil {
		return ""
	}
	return m[1]
}

// cleanTypeName strips the unit parenthetical and the boilerplate matrix
// phrases, leaving just the compound wording.
func cleanTypeName(typeName string) string {
	s := unitPattern.ReplaceAllString(typeName, "")
	for _, phrase := range boilerplate {
		s = strings.ReplaceAll(s, phrase, "")
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimPrefix(s, "Total ")
	return strings.TrimSpace(s)
}

// canonicalName collapses the many raw type-name variants onto the small
// canonical compound set via the ordered rule list. An unmatched name keeps
// its cleaned form.
func canonicalName(typeName string, rules []canonRule) string {
	cleaned := cleanTypeName(typeName)
	lower := strings.ToLower(cleaned)
	for _, r := range rules {
		if strings.Contains(lower, r.substr) {
			return r.name
		}
	}
	return cleaned
}

// aromaName cleans a terpene type name and shortens the Greek-letter
// prefixes for label space.
func aromaName(typeName string) string {
	s := cleanTypeName(typeName)
	s = strings.ReplaceAll(s, "Alpha-", "a-")
	s = strings.ReplaceAll(s, "Beta-", "b-")
	return s
}

// PotencyMap builds the export mapping from every recognized compound to its
// formatted value. Compounds that were not measured, or whose level was not
// positive, stay at the "0.0" default; non-numeric passthrough values are
// kept as reported.
func PotencyMap(potency []Entry) map[string]string {
	m := make(map[string]string, len(PotencyCompounds))
	for _, c := range PotencyCompounds {
		m[c] = "0.0"
	}
	for _, e := range potency {
		if _, ok := m[e.Name]; !ok {
			continue
		}
		if e.numeric && e.level <= 0 {
			continue
		}
		m[e.Name] = e.Value
	}
	return m
}
