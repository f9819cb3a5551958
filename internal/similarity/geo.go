package similarity

import (
	"math"
	"strconv"
	"strings"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// GeoDistanceKm returns the great-circle distance between two points.
func GeoDistanceKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// CoordinateProximityScore decays linearly from 1.0 at 0 km to 0.0 at maxKm.
// A nil coordinate or a non-positive radius scores 0.
func CoordinateProximityScore(a, b *Point, maxKm float64) float64 {
	if a == nil || b == nil || maxKm <= 0 {
		return 0.0
	}
	d := GeoDistanceKm(*a, *b)
	if d >= maxKm {
		return 0.0
	}
	return 1.0 - d/maxKm
}

// maxColorDistance is the Euclidean distance between black and white in RGB.
var maxColorDistance = math.Sqrt(3 * 255 * 255)

// ParseHexColor reads "#RRGGBB", "RRGGBB", or the short "#RGB" form.
func ParseHexColor(s string) (r, g, b uint8, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

// ColorSimilarity compares two hex colors as 1 - distance/maxDistance in RGB
// space. The second return value is false when either color fails to parse.
func ColorSimilarity(a, b string) (float64, bool) {
	r1, g1, b1, ok1 := ParseHexColor(a)
	r2, g2, b2, ok2 := ParseHexColor(b)
	if !ok1 || !ok2 {
		return 0.0, false
	}
	dr := float64(r1) - float64(r2)
	dg := float64(g1) - float64(g2)
	db := float64(b1) - float64(b2)
	d := math.Sqrt(dr*dr + dg*dg + db*db)
	return 1.0 - d/maxColorDistance, true
}
