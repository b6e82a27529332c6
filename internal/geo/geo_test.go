package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/geo"
)

// 0.02-degree square centered on zone 1, Guatemala City.
func capitalSquare() []geo.Point {
	return []geo.Point{
		{Lat: 14.6249, Lng: -90.5169},
		{Lat: 14.6249, Lng: -90.4969},
		{Lat: 14.6449, Lng: -90.4969},
		{Lat: 14.6449, Lng: -90.5169},
	}
}

func TestPointInPolygon(t *testing.T) {
	tests := []struct {
		name string
		p    geo.Point
		ring []geo.Point
		want bool
	}{
		{
			name: "inside_square",
			p:    geo.Point{Lat: 14.6350, Lng: -90.5070},
			ring: capitalSquare(),
			want: true,
		},
		{
			name: "outside_square",
			p:    geo.Point{Lat: 14.7000, Lng: -90.5070},
			ring: capitalSquare(),
			want: false,
		},
		{
			name: "outside_by_longitude",
			p:    geo.Point{Lat: 14.6350, Lng: -90.4000},
			ring: capitalSquare(),
			want: false,
		},
		{
			name: "closed_ring_inside",
			p:    geo.Point{Lat: 14.6350, Lng: -90.5070},
			ring: append(capitalSquare(), capitalSquare()[0]),
			want: true,
		},
		{
			name: "two_vertices_never_contain",
			p:    geo.Point{Lat: 14.6350, Lng: -90.5070},
			ring: capitalSquare()[:2],
			want: false,
		},
		{
			name: "empty_ring",
			p:    geo.Point{Lat: 14.6350, Lng: -90.5070},
			ring: nil,
			want: false,
		},
		{
			name: "concave_polygon_notch",
			p:    geo.Point{Lat: 5, Lng: 5},
			ring: []geo.Point{
				{Lat: 0, Lng: 0},
				{Lat: 0, Lng: 10},
				{Lat: 10, Lng: 10},
				{Lat: 10, Lng: 6},
				{Lat: 2, Lng: 6},
				{Lat: 2, Lng: 4},
				{Lat: 10, Lng: 4},
				{Lat: 10, Lng: 0},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geo.PointInPolygon(tt.p, tt.ring)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPointInPolygon_Deterministic(t *testing.T) {
	p := geo.Point{Lat: 14.6350, Lng: -90.5070}
	ring := capitalSquare()

	first := geo.PointInPolygon(p, ring)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, geo.PointInPolygon(p, ring))
	}
}

func TestHaversine(t *testing.T) {
	// Guatemala City to Antigua Guatemala is roughly 25 km.
	gua := geo.Point{Lat: 14.6349, Lng: -90.5069}
	ant := geo.Point{Lat: 14.5586, Lng: -90.7295}

	d := geo.Haversine(gua, ant)
	assert.InDelta(t, 25.0, d, 2.0)

	assert.Zero(t, geo.Haversine(gua, gua))
	assert.InDelta(t, geo.Haversine(gua, ant), geo.Haversine(ant, gua), 1e-9)
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, geo.ValidCoordinates(14.6349, -90.5069))
	assert.True(t, geo.ValidCoordinates(-90, 180))
	assert.False(t, geo.ValidCoordinates(90.0001, 0))
	assert.False(t, geo.ValidCoordinates(0, -180.0001))
	assert.False(t, geo.ValidCoordinates(-91, 200))
}
