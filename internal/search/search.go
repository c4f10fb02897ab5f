// Package search is the inbound boundary of the pipeline: one call takes a
// license selector and partial tag and returns the fully assembled export
// record. Callers are expected to run it off any interactive surface.
package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"labelfeed/internal/export"
	"labelfeed/internal/labtests"
	"labelfeed/internal/license"
	"labelfeed/internal/metrc"
)

// ErrInvalidUnitWeight means the requested unit weight is not permitted
// under the selected license.
var ErrInvalidUnitWeight = fmt.Errorf("unit weight not permitted for license")

// Request is one user-initiated search.
type Request struct {
	License    license.Selector
	PartialTag string
	UnitWeight string
	LabelCount int
}

// Searcher runs the retrieval-and-normalization pipeline. It holds no
// per-search state; every search owns its own accumulator.
type Searcher struct {
	client *metrc.Client
	logger *zap.Logger
}

// New creates a Searcher.
func New(client *metrc.Client, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{client: client, logger: logger}
}

// Search resolves the label, looks up the package, fetches every lab-test
// page, classifies the results, and assembles the export record. Stages run
// strictly in sequence; the first failure aborts with no partial result.
func (s *Searcher) Search(ctx context.Context, req Request) (*export.Record, error) {
	log := s.logger.With(
		zap.String("search_id", uuid.NewString()),
		zap.String("license", string(req.License)),
		zap.String("partial_tag", req.PartialTag))

	label, err := license.ResolveLabel(req.License, req.PartialTag)
	if err != nil {
		return nil, err
	}
	licenseNumber, err := license.Number(req.License)
	if err != nil {
		return nil, err
	}
	if req.UnitWeight != "" {
		weights, err := license.UnitWeights(req.License)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(weights, req.UnitWeight) {
			return nil, fmt.Errorf("%w: %q (allowed: %v)", ErrInvalidUnitWeight, req.UnitWeight, weights)
		}
	}

	log.Info("searching package", zap.String("label", label))
	pkg, err := s.client.LookupPackage(ctx, licenseNumber, label)
	if err != nil {
		return nil, err
	}
	log.Info("package resolved", zap.Int64("package_id", pkg.ID))

	records, err := s.client.FetchResults(ctx, licenseNumber, pkg.ID)
	if err != nil {
		return nil, err
	}
	log.Info("lab results fetched", zap.Int("records", len(records)))

	results := labtests.Classify(records)
	testDate, expiration := labtests.Dates(records)
	name := labtests.ParseProductName(pkg.ProductName)

	terpenes := make([]export.TerpeneEntry, 0, len(results.Aroma))
	for _, e := range results.Aroma {
		terpenes = append(terpenes, export.TerpeneEntry{Name: e.Name, Value: e.Value})
	}

	return &export.Record{
		ApprovalNumber:     name.ApprovalNumber,
		Description:        name.Description,
		StrainName:         name.Strain,
		ProductName:        pkg.ProductName,
		PackageLabel:       label,
		License:            string(req.License),
		Potency:            labtests.PotencyMap(results.Potency),
		TestDate:           testDate,
		ExpirationDate:     expiration,
		SourcePackageLabel: pkg.SourcePackageLabel,
		UnitWeight:         req.UnitWeight,
		LabelCount:         req.LabelCount,
		TestingFacility:    export.TestingFacility,
		Terpenes:           terpenes,
	}, nil
}
