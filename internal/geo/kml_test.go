package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/geo"
)

func TestParseKMLCoordinates(t *testing.T) {
	t.Run("tuples_with_altitude", func(t *testing.T) {
		raw := `
			-90.5169,14.6249,0
			-90.4969,14.6249,0
			-90.4969,14.6449,0
			-90.5169,14.6449,0
			-90.5169,14.6249,0
		`
		ring, err := geo.ParseKMLCoordinates(raw)
		require.NoError(t, err)
		require.Len(t, ring, 5)
		assert.Equal(t, geo.Point{Lat: 14.6249, Lng: -90.5169}, ring[0])
		assert.Equal(t, ring[0], ring[4])
	})

	t.Run("tuples_without_altitude", func(t *testing.T) {
		ring, err := geo.ParseKMLCoordinates("-90.5,14.6 -90.4,14.7")
		require.NoError(t, err)
		require.Len(t, ring, 2)
		assert.Equal(t, geo.Point{Lat: 14.7, Lng: -90.4}, ring[1])
	})

	t.Run("empty_input", func(t *testing.T) {
		ring, err := geo.ParseKMLCoordinates("   \n\t ")
		require.NoError(t, err)
		assert.Empty(t, ring)
	})

	t.Run("missing_latitude", func(t *testing.T) {
		_, err := geo.ParseKMLCoordinates("-90.5169")
		assert.Error(t, err)
	})

	t.Run("non_numeric_tuple", func(t *testing.T) {
		_, err := geo.ParseKMLCoordinates("-90.5169,abc,0")
		assert.Error(t, err)
	})
}
