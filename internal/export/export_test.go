package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_RoundTrip(t *testing.T) {
	rec := &Record{
		ApprovalNumber:     "AB-100",
		Description:        "Premium OG",
		StrainName:         "Kush",
		ProductName:        "AB-100: Premium OG Kush",
		PackageLabel:       "1A4060300002199000012345",
		License:            "MAN",
		Potency:            map[string]string{"THC": "12.50 mg/unit", "CBD": "0.0"},
		TestDate:           "03/10/2024",
		ExpirationDate:     "03/10/2025",
		SourcePackageLabel: "N/A",
		UnitWeight:         "100mg",
		LabelCount:         50,
		TestingFacility:    TestingFacility,
		Terpenes: []TerpeneEntry{
			{Name: "a-Pinene", Value: "3.14%"},
			{Name: "b-Myrcene", Value: "0.41%"},
		},
	}

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, Write(path, rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Record
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(rec, &got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_OverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, Write(path, &Record{StrainName: "First"}))
	require.NoError(t, Write(path, &Record{StrainName: "Second"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Second", got.StrainName)
}
