// Package license holds the static operating-license registry: each selector
// maps to a Metrc license number, a package tag prefix, and the unit weights
// the facility is allowed to print on a label.
package license

import (
	"errors"
	"fmt"
)

// Selector names one of the fixed operating licenses.
type Selector string

const (
	Manufacturing Selector = "MAN"
	Cultivation   Selector = "CUL"
)

var (
	// ErrInvalidTag means the partial tag was empty or not digits-only.
	ErrInvalidTag = errors.New("partial tag must be a non-empty string of digits")
	// ErrUnknownLicense means the selector has no registered license entry.
	ErrUnknownLicense = errors.New("unknown license selector")
)

type entry struct {
	number      string // full Metrc license number (licenseNumber query param)
	tagPrefix   string // fixed prefix prepended to the user-supplied partial tag
	unitWeights []string
}

var registry = map[Selector]entry{
	Manufacturing: {
		number:      "MAN000042",
		tagPrefix:   "1A4060300002199000",
		unitWeights: []string{"50mg", "100mg", "200mg"},
	},
	Cultivation: {
		number:      "CUL000017",
		tagPrefix:   "1A4060300001699000",
		unitWeights: []string{"1g", "3.5g", "7g", "14g", "28g"},
	},
}

// All returns the registered selectors.
func All() []Selector {
	return []Selector{Manufacturing, Cultivation}
}

// Number returns the Metrc license number for sel.
func Number(sel Selector) (string, error) {
	e, ok := registry[sel]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLicense, sel)
	}
	return e.number, nil
}

// UnitWeights returns the unit-weight options permitted under sel.
func UnitWeights(sel Selector) ([]string, error) {
	e, ok := registry[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLicense, sel)
	}
	out := make([]string, len(e.unitWeights))
	copy(out, e.unitWeights)
	return out, nil
}

// ResolveLabel builds the fully-qualified package label for a partial tag by
// prepending the license's fixed tag prefix. The partial tag must be
// non-empty and digits-only; it is concatenated verbatim.
func ResolveLabel(sel Selector, partialTag string) (string, error) {
	e, ok := registry[sel]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLicense, sel)
	}
	if !digitsOnly(partialTag) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, partialTag)
	}
	return e.tagPrefix + partialTag, nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
