package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Coordinate
		want float64 // meters
		tol  float64
	}{
		{
			name: "identical points",
			a:    Coordinate{Lat: 51.5, Lng: -0.12},
			b:    Coordinate{Lat: 51.5, Lng: -0.12},
			want: 0,
			tol:  0.001,
		},
		{
			name: "one degree of latitude at equator",
			a:    Coordinate{Lat: 0, Lng: 0},
			b:    Coordinate{Lat: 1, Lng: 0},
			want: 111195, // 6371000 * pi/180
			tol:  10,
		},
		{
			name: "london to paris",
			a:    Coordinate{Lat: 51.5074, Lng: -0.1278},
			b:    Coordinate{Lat: 48.8566, Lng: 2.3522},
			want: 343556,
			tol:  1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Distance() = %v, want %v (±%v)", got, tt.want, tt.tol)
			}
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := []struct{ a, b Coordinate }{
		{Coordinate{Lat: 1.0, Lng: 2.0}, Coordinate{Lat: -3.5, Lng: 100.25}},
		{Coordinate{Lat: 89.9, Lng: 179.9}, Coordinate{Lat: -89.9, Lng: -179.9}},
		{Coordinate{Lat: 35.6762, Lng: 139.6503}, Coordinate{Lat: 40.7128, Lng: -74.0060}},
	}
	for _, p := range pairs {
		ab := Distance(p.a, p.b)
		ba := Distance(p.b, p.a)
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("Distance not symmetric: d(a,b)=%v d(b,a)=%v for %+v", ab, ba, p)
		}
		if ab <= 0 {
			t.Errorf("Distance between distinct points should be positive, got %v", ab)
		}
	}
}

func TestPointInPolygon(t *testing.T) {
	// Unit square around the origin.
	square := []Coordinate{
		{Lat: -1, Lng: -1},
		{Lat: 1, Lng: -1},
		{Lat: 1, Lng: 1},
		{Lat: -1, Lng: 1},
	}

	tests := []struct {
		name    string
		point   Coordinate
		polygon []Coordinate
		want    bool
	}{
		{"center of square", Coordinate{Lat: 0, Lng: 0}, square, true},
		{"interior off-center", Coordinate{Lat: 0.5, Lng: -0.5}, square, true},
		{"clearly outside north", Coordinate{Lat: 2, Lng: 0}, square, false},
		{"clearly outside east", Coordinate{Lat: 0, Lng: 5}, square, false},
		{"far away", Coordinate{Lat: 50, Lng: 50}, square, false},
		{
			"triangle interior",
			Coordinate{Lat: 0.25, Lng: 0.25},
			[]Coordinate{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 1}},
			true,
		},
		{
			"triangle exterior",
			Coordinate{Lat: 0.9, Lng: 0.9},
			[]Coordinate{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 1}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.point, tt.polygon); got != tt.want {
				t.Errorf("PointInPolygon(%+v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"origin", Coordinate{Lat: 0, Lng: 0}, true},
		{"extreme corners", Coordinate{Lat: 90, Lng: -180}, true},
		{"latitude too high", Coordinate{Lat: 90.01, Lng: 0}, false},
		{"latitude too low", Coordinate{Lat: -91, Lng: 0}, false},
		{"longitude too high", Coordinate{Lat: 0, Lng: 180.5}, false},
		{"longitude too low", Coordinate{Lat: 0, Lng: -200}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.c); got != tt.want {
				t.Errorf("Valid(%+v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}
