package labtests

import (
	"strings"
	"time"

	"labelfeed/internal/metrc"
)

const (
	isoDateLayout   = "2006-01-02"
	labelDateLayout = "01/02/2006"
)

// parseTestDate accepts the service's ISO date strings, tolerating a
// timestamp suffix by truncating to the date part.
func parseTestDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(isoDateLayout) {
		s = s[:len(isoDateLayout)]
	}
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EarliestTestDate returns the first record (in input order) with a
// parseable performed date. The full record set feeds this, not just the
// classified subsets.
func EarliestTestDate(records []metrc.TestRecord) (time.Time, bool) {
	for _, rec := range records {
		if t, ok := parseTestDate(rec.TestPerformedDate); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Dates derives the label's test and expiration dates, both MM/DD/YYYY.
// Expiration is the test date plus one calendar year. When no record
// carries a valid date both fall closed to the sentinel; this never errors.
func Dates(records []metrc.TestRecord) (testDate, expiration string) {
	t, ok := EarliestTestDate(records)
	if !ok {
		return metrc.Unavailable, metrc.Unavailable
	}
	return t.Format(labelDateLayout), t.AddDate(1, 0, 0).Format(labelDateLayout)
}

// ProductName is the decomposition of a compound product-name field of the
// form "ApprovalNumber: Description Strain".
type ProductName struct {
	ApprovalNumber string
	Description    string
	Strain         string
}

// ParseProductName splits a product name on its first colon into approval
// number and remainder; the remainder's last whitespace token is the strain
// and the preceding tokens form the description. With no colon the approval
// number is the sentinel and the whole string is the remainder.
func ParseProductName(s string) ProductName {
	p := ProductName{ApprovalNumber: metrc.Unavailable}
	remainder := s
	if idx := strings.Index(s, ":"); idx >= 0 {
		p.ApprovalNumber = strings.TrimSpace(s[:idx])
		remainder = s[idx+1:]
	}
	fields := strings.Fields(remainder)
	switch len(fields) {
	case 0:
	case 1:
		p.Strain = fields[0]
	default:
		p.Description = strings.Join(fields[:len(fields)-1], " ")
		p.Strain = fields[len(fields)-1]
	}
	return p
}
