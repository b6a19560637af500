package geo

import (
	"context"
	"fmt"
)

// Geocoder resolves device coordinates to a place name the weather
// service accepts. Lookups are fallible; callers fall back to manual
// location entry on error.
type Geocoder interface {
	Reverse(ctx context.Context, latitude, longitude float64) (string, error)
}

// Static is a stand-in geocoder that answers every valid coordinate
// pair with a fixed place name. A real deployment swaps in an adapter
// for an actual reverse-geocoding provider here.
type Static struct {
	place string
}

// NewStatic builds the stand-in; an empty place falls back to the
// default label the web client used.
func NewStatic(place string) *Static {
	if place == "" {
		place = "Thành phố tự động"
	}
	return &Static{place: place}
}

// Reverse validates the coordinates and returns the fixed place name.
func (s *Static) Reverse(_ context.Context, latitude, longitude float64) (string, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return "", fmt.Errorf("coordinates out of range: %f, %f", latitude, longitude)
	}
	return s.place, nil
}
