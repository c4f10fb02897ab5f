package metrc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Package is the slice of a package record the label pipeline cares about.
// DoseCount and Ingredients are passed through untouched.
type Package struct {
	ID                 int64
	ProductName        string
	SourcePackageLabel string
	DoseCount          int
	Ingredients        string
}

// packageResponse tolerates the fields the service may or may not send for a
// package. Pointers distinguish absent from zero.
type packageResponse struct {
	ID                  *int64 `json:"Id"`
	Label               string `json:"Label"`
	SourcePackageLabels string `json:"SourcePackageLabels"`
	SourcePackageID     *int64 `json:"SourcePackageId"`
	Item                struct {
		Name          string `json:"Name"`
		NumberOfDoses int    `json:"NumberOfDoses"`
		Ingredients   string `json:"Ingredients"`
	} `json:"Item"`
}

// LookupPackage resolves a fully-qualified package label to its identifier
// and descriptive metadata. The product name falls back to the label itself
// when the service omits it. Resolving the source package's label through a
// secondary request is best-effort: any failure there degrades to the
// Unavailable sentinel instead of failing the lookup.
func (c *Client) LookupPackage(ctx context.Context, licenseNumber, label string) (*Package, error) {
	query := url.Values{"licenseNumber": {licenseNumber}}
	body, err := c.get(ctx, "/packages/v1/"+url.PathEscape(label), query)
	if err != nil {
		return nil, fmt.Errorf("package lookup for %s: %w", label, err)
	}

	var raw packageResponse
	if err := decodeObject(body, &raw); err != nil {
		return nil, fmt.Errorf("package lookup for %s: %w", label, err)
	}
	if raw.ID == nil {
		return nil, fmt.Errorf("package lookup for %s: %w", label, ErrPackageIDNotFound)
	}

	pkg := &Package{
		ID:          *raw.ID,
		ProductName: raw.Item.Name,
		DoseCount:   raw.Item.NumberOfDoses,
		Ingredients: raw.Item.Ingredients,
	}
	if pkg.ProductName == "" {
		pkg.ProductName = label
	}

	pkg.SourcePackageLabel = strings.TrimSpace(raw.SourcePackageLabels)
	if pkg.SourcePackageLabel == "" {
		if raw.SourcePackageID != nil {
			pkg.SourcePackageLabel = c.resolveSourceLabel(ctx, licenseNumber, *raw.SourcePackageID)
		} else {
			pkg.SourcePackageLabel = Unavailable
		}
	}
	return pkg, nil
}

// resolveSourceLabel fetches the label of a package by id. It never fails:
// the caller only wants the label for display, so errors degrade to the
// Unavailable sentinel.
func (c *Client) resolveSourceLabel(ctx context.Context, licenseNumber string, id int64) string {
	query := url.Values{"licenseNumber": {licenseNumber}}
	body, err := c.get(ctx, fmt.Sprintf("/packages/v1/%d", id), query)
	if err != nil {
		c.logger.Warn("source package lookup failed",
			zap.Int64("source_package_id", id),
			zap.Error(err))
		return Unavailable
	}
	var raw struct {
		Label string `json:"Label"`
	}
	if err := decodeObject(body, &raw); err != nil || raw.Label == "" {
		c.logger.Warn("source package response unusable",
			zap.Int64("source_package_id", id))
		return Unavailable
	}
	return raw.Label
}
