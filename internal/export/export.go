// Package export assembles the final interchange record and writes it to the
// JSON file the downstream BarTender labeling workflow reads.
package export

import (
	"encoding/json"
	"fmt"
	"os"
)

// TestingFacility identifies the lab on every exported record.
const TestingFacility = "MO-TL-000023"

// TerpeneEntry is one aroma compound on the label, already formatted.
type TerpeneEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is the flattened export consumed by the labeling system. Field
// names are part of the interchange contract; do not rename the JSON tags.
type Record struct {
	ApprovalNumber     string            `json:"approval_number"`
	Description        string            `json:"description"`
	StrainName         string            `json:"strain_name"`
	ProductName        string            `json:"product_name"`
	PackageLabel       string            `json:"package_label"`
	License            string            `json:"license"`
	Potency            map[string]string `json:"potency"`
	TestDate           string            `json:"test_date"`
	ExpirationDate     string            `json:"expiration_date"`
	SourcePackageLabel string            `json:"source_package_label"`
	UnitWeight         string            `json:"unit_weight"`
	LabelCount         int               `json:"label_count"`
	TestingFacility    string            `json:"testing_facility"`
	Terpenes           []TerpeneEntry    `json:"terpenes"`
}

// Write serializes rec to path, replacing any previous export at that
// location.
func Write(path string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export record: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
