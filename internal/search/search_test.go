package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"labelfeed/internal/export"
	"labelfeed/internal/license"
	"labelfeed/internal/metrc"
)

const fullLabel = "1A40603000021990000012345"

func newSearcher(baseURL string) *Searcher {
	cfg := metrc.DefaultConfig("vendor", "user")
	cfg.BaseURL = baseURL
	cfg.BackoffBase = time.Millisecond
	cfg.BackoffMax = time.Millisecond
	return New(metrc.New(cfg, zap.NewNop()), zap.NewNop())
}

// fakeMetrc serves the package-detail and lab-results endpoints for one
// package with two result pages.
func fakeMetrc(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/packages/v1/"+fullLabel:
			assert.Equal(t, "MAN000042", r.URL.Query().Get("licenseNumber"))
			fmt.Fprint(w, `{
				"Id": 4417,
				"Label": "`+fullLabel+`",
				"SourcePackageLabels": "1A4060300001699000000071",
				"Item": {"Name": "AB-100: Premium OG Kush"}
			}`)
		case r.URL.Path == "/labtests/v1/results":
			switch r.URL.Query().Get("pageNumber") {
			case "1":
				fmt.Fprint(w, `{"Data": [
					{"TestTypeName": "Total THC (mg/unit) Raw Plant Material & PreRolls", "TestPassed": true, "TestResultLevel": 12.5, "TestPerformedDate": "2024-03-10"},
					{"TestTypeName": "Total CBD (mg/unit)", "TestPassed": true, "TestResultLevel": "0", "TestPerformedDate": "2024-03-10"}
				], "TotalPages": 2}`)
			case "2":
				fmt.Fprint(w, `{"Data": [
					{"TestTypeName": "Beta-Myrcene (%) Mandatory Terpenes", "TestPassed": true, "TestResultLevel": "0.41", "TestPerformedDate": "2024-03-10"},
					{"TestTypeName": "Alpha-Pinene (%) Mandatory Terpenes", "TestPassed": true, "TestResultLevel": "3.14159", "TestPerformedDate": "2024-03-10"},
					{"TestTypeName": "Limonene (%) Mandatory Terpenes", "TestPassed": true, "TestResultLevel": "0", "TestPerformedDate": "2024-03-10"}
				], "TotalPages": 2}`)
			default:
				t.Errorf("unexpected page %s", r.URL.Query().Get("pageNumber"))
			}
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestSearch_EndToEnd(t *testing.T) {
	server := fakeMetrc(t)
	defer server.Close()

	rec, err := newSearcher(server.URL).Search(context.Background(), Request{
		License:    license.Manufacturing,
		PartialTag: "0012345",
		UnitWeight: "100mg",
		LabelCount: 50,
	})
	require.NoError(t, err)

	want := &export.Record{
		ApprovalNumber: "AB-100",
		Description:    "Premium OG",
		StrainName:     "Kush",
		ProductName:    "AB-100: Premium OG Kush",
		PackageLabel:   fullLabel,
		License:        "MAN",
		Potency: map[string]string{
			"THC":  "12.50 mg/unit",
			"THCA": "0.0",
			"CBD":  "0.0",
			"CBDA": "0.0",
			"CBN":  "0.0",
			"CBDV": "0.0",
			"THCV": "0.0",
		},
		TestDate:           "03/10/2024",
		ExpirationDate:     "03/10/2025",
		SourcePackageLabel: "1A4060300001699000000071",
		UnitWeight:         "100mg",
		LabelCount:         50,
		TestingFacility:    export.TestingFacility,
		Terpenes: []export.TerpeneEntry{
			{Name: "a-Pinene", Value: "3.14%"},
			{Name: "b-Myrcene", Value: "0.41%"},
		},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("export record mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_InputValidation(t *testing.T) {
	s := newSearcher("http://127.0.0.1:0") // must never be dialed

	t.Run("bad partial tag", func(t *testing.T) {
		_, err := s.Search(context.Background(), Request{License: license.Manufacturing, PartialTag: "12x45"})
		assert.ErrorIs(t, err, license.ErrInvalidTag)
	})

	t.Run("unknown license", func(t *testing.T) {
		_, err := s.Search(context.Background(), Request{License: license.Selector("DISP"), PartialTag: "12345"})
		assert.ErrorIs(t, err, license.ErrUnknownLicense)
	})

	t.Run("unit weight outside license options", func(t *testing.T) {
		_, err := s.Search(context.Background(), Request{
			License:    license.Manufacturing,
			PartialTag: "12345",
			UnitWeight: "28g", // cultivation-only weight
		})
		assert.ErrorIs(t, err, ErrInvalidUnitWeight)
	})
}

func TestSearch_TransportFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newSearcher(server.URL).Search(context.Background(), Request{
		License:    license.Cultivation,
		PartialTag: "777",
	})
	assert.ErrorIs(t, err, metrc.ErrUnauthorized)
}
