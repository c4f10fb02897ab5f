package metrc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// TestRecord is one raw lab-test result as the service reports it. The
// schema drifts between deployments, so every field is decoded permissively.
type TestRecord struct {
	TestTypeName      string `json:"TestTypeName"`
	TestPassed        bool   `json:"TestPassed"`
	TestResultLevel   Level  `json:"TestResultLevel"`
	TestPerformedDate string `json:"TestPerformedDate"`
}

// Level is a measurement that the service reports sometimes as a JSON
// number, sometimes as a string (including the literal "N/A"). The raw text
// is kept; numeric interpretation is the caller's choice.
type Level struct {
	Raw string
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		l.Raw = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		l.Raw = n.String()
		return nil
	}
	return fmt.Errorf("%w: test result level is neither string nor number", ErrUnexpectedSchema)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Raw)
}

// Float parses the level as a number. The second return is false for empty,
// "N/A", or otherwise non-numeric levels.
func (l Level) Float() (float64, bool) {
	s := strings.TrimSpace(l.Raw)
	if s == "" || s == Unavailable {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (l Level) String() string { return l.Raw }

// resultsPage is the decoded form of one lab-results page.
type resultsPage struct {
	Data       []TestRecord
	TotalPages int
}

// decodeResultsPage handles the service's two page shapes: an envelope
// object carrying Data and TotalPages, or a bare record array (older
// deployments; treated as a single page). Anything else is a schema error.
func decodeResultsPage(body []byte) (*resultsPage, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	switch trimmed[0] {
	case '{':
		var env struct {
			Data       []TestRecord `json:"Data"`
			TotalPages *int         `json:"TotalPages"`
		}
		if err := decodeObject(body, &env); err != nil {
			return nil, err
		}
		if env.Data == nil {
			return nil, fmt.Errorf("%w: result envelope has no Data array", ErrUnexpectedSchema)
		}
		total := 1
		if env.TotalPages != nil {
			total = *env.TotalPages
		}
		return &resultsPage{Data: env.Data, TotalPages: total}, nil
	case '[':
		var records []TestRecord
		if err := decodeObject(body, &records); err != nil {
			return nil, err
		}
		return &resultsPage{Data: records, TotalPages: 1}, nil
	default:
		if !json.Valid(body) {
			return nil, fmt.Errorf("%w: not JSON", ErrMalformedResponse)
		}
		return nil, fmt.Errorf("%w: result page is neither object nor array", ErrUnexpectedSchema)
	}
}

// FetchResults collects every lab-test record for a package, following the
// page count the service reports. The first failing page aborts the fetch;
// records accumulated from earlier pages are discarded, never returned.
func (c *Client) FetchResults(ctx context.Context, licenseNumber string, packageID int64) ([]TestRecord, error) {
	var all []TestRecord
	page := 1
	for {
		query := url.Values{
			"packageId":     {strconv.FormatInt(packageID, 10)},
			"licenseNumber": {licenseNumber},
			"pageNumber":    {strconv.Itoa(page)},
			"pageSize":      {strconv.Itoa(c.pageSize)},
		}
		body, err := c.get(ctx, "/labtests/v1/results", query)
		if err != nil {
			return nil, fmt.Errorf("lab results page %d: %w", page, err)
		}
		pg, err := decodeResultsPage(body)
		if err != nil {
			return nil, fmt.Errorf("lab results page %d: %w", page, err)
		}
		all = append(all, pg.Data...)
		if page++; page > pg.TotalPages {
			return all, nil
		}
	}
}
