//go:generate mockgen -source=geolocation.go -destination=mocks/mocks.go -package=mocks Geocoder

// Package geolocation resolves physical addresses to coordinates through an
// external geocoding service. Lookups are best-effort: every failure is a
// non-success Result, never an error.
package geolocation

import (
	"context"
	"strings"
)

// Status is the outcome of a lookup.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusError          Status = "error"
	StatusLimitExceeded  Status = "limitExceeded"
	StatusAccessDenied   Status = "accessDenied"
	StatusInvalidRequest Status = "invalidRequest"
)

// Address is the subset of a physical address used for lookups.
type Address struct {
	Line1    string
	Line2    string
	Line3    string
	Line4    string
	City     string
	State    string
	Postcode string
	Country  string
}

// Query joins the non-empty parts into one lookup string.
func (a Address) Query() string {
	parts := make([]string, 0, 8)
	for _, p := range []string{a.Line1, a.Line2, a.Line3, a.Line4, a.City, a.State, a.Postcode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Result carries the coordinates; they are zero unless Status is success.
type Result struct {
	Status    Status
	Latitude  float64
	Longitude float64
}

// Geocoder resolves addresses.
type Geocoder interface {
	Geocode(ctx context.Context, addr Address) Result
}

// Disabled is a Geocoder used when no API key is configured.
type Disabled struct{}

func (Disabled) Geocode(context.Context, Address) Result {
	return Result{Status: StatusError}
}
