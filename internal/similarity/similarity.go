// Package similarity adapts the string-similarity and distance metrics the matching
// packages consume. Every function here is pure and safe for concurrent use.
package similarity

import (
	"fmt"
	"math"
	"strings"

	"github.com/xrash/smetrics"
)

// StringFunc scores two strings in [0,1]; 1 means identical.
type StringFunc func(a, b string) float64

// DistanceFunc returns a non-negative distance between two coordinates.
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

const (
	// Standard Jaro-Winkler boost threshold and prefix length.
	winklerBoost  = 0.7
	winklerPrefix = 4

	// EarthRadiusKm is the mean Earth radius used by Haversine.
	EarthRadiusKm = 6371.0088
)

// JaroWinkler returns a Jaro-Winkler scorer. Unless caseSensitive is set both inputs
// are lower-cased and trimmed first.
func JaroWinkler(caseSensitive bool) StringFunc {
	return func(a, b string) float64 {
		if !caseSensitive {
			a = strings.ToLower(strings.TrimSpace(a))
			b = strings.ToLower(strings.TrimSpace(b))
		}
		if a == b {
			return 1
		}
		if a == "" || b == "" {
			return 0
		}
		return smetrics.JaroWinkler(a, b, winklerBoost, winklerPrefix)
	}
}

// Haversine is the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180
	h := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Euclidean is the planar distance between raw coordinates, in degrees.
func Euclidean(lat1, lon1, lat2, lon2 float64) float64 {
	return math.Hypot(lat2-lat1, lon2-lon1)
}

// Metric resolves a distance function by name.
func Metric(name string) (DistanceFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "haversine", "geodesic":
		return Haversine, nil
	case "euclidean", "planar":
		return Euclidean, nil
	default:
		return nil, fmt.Errorf("unknown distance metric %q (use haversine|euclidean)", name)
	}
}
