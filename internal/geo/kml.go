package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseKMLCoordinates parses the raw text of a KML <coordinates> element:
// whitespace-separated "lng,lat[,alt]" tuples. Altitude is ignored.
func ParseKMLCoordinates(raw string) ([]Point, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, nil
	}

	ring := make([]Point, 0, len(fields))
	for _, field := range fields {
		parts := strings.Split(field, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("geo: malformed coordinate tuple %q", field)
		}

		lng, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("geo: invalid longitude in tuple %q: %w", field, err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("geo: invalid latitude in tuple %q: %w", field, err)
		}

		ring = append(ring, Point{Lat: lat, Lng: lng})
	}

	return ring, nil
}
