// Package geo has the little geometry the service needs: coordinate checks
// and great-circle path length. No routing.
package geo

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

const earthRadiusM = 6371000.0

func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Haversine returns the great-circle distance in meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

type Point struct {
	Lat float64
	Lng float64
}

// PathLength sums Haversine distances between consecutive points.
func PathLength(pts []Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += Haversine(pts[i-1].Lat, pts[i-1].Lng, pts[i].Lat, pts[i].Lng)
	}
	return total
}

var ErrUnknownPathFormat = errors.New("unknown path format")

// ParsePath extracts points from the path blobs clients send. Accepted:
//   - GeoJSON LineString / Feature with a LineString ([lng, lat] order)
//   - an array of {"lat":..,"lng":..} objects
//   - an object with a "points", "coordinates" or "path" array of either
func ParsePath(data []byte) ([]Point, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decode path")
	}
	pts, ok := fromValue(v, false)
	if !ok {
		return nil, ErrUnknownPathFormat
	}
	return pts, nil
}

func fromValue(v any, lngFirst bool) ([]Point, bool) {
	switch t := v.(type) {
	case []any:
		return fromArray(t, lngFirst)
	case map[string]any:
		if typ, _ := t["type"].(string); typ == "Feature" {
			return fromValue(t["geometry"], true)
		}
		if typ, _ := t["type"].(string); typ == "LineString" {
			return fromValue(t["coordinates"], true)
		}
		for _, k := range []string{"points", "coordinates", "path"} {
			if inner, ok := t[k]; ok {
				return fromValue(inner, lngFirst)
			}
		}
	}
	return nil, false
}

func fromArray(arr []any, lngFirst bool) ([]Point, bool) {
	out := make([]Point, 0, len(arr))
	for _, item := range arr {
		switch p := item.(type) {
		case []any:
			if len(p) < 2 {
				return nil, false
			}
			a, ok1 := p[0].(float64)
			b, ok2 := p[1].(float64)
			if !ok1 || !ok2 {
				return nil, false
			}
			if lngFirst {
				a, b = b, a
			}
			out = append(out, Point{Lat: a, Lng: b})
		case map[string]any:
			lat, ok1 := number(p, "lat", "latitude")
			lng, ok2 := number(p, "lng", "lon", "longitude")
			if !ok1 || !ok2 {
				return nil, false
			}
			out = append(out, Point{Lat: lat, Lng: lng})
		default:
			return nil, false
		}
	}
	return out, true
}

func number(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := m[k].(float64); ok {
			return f, true
		}
	}
	return 0, false
}
