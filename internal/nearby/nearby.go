// Package nearby ranks map-visible users by great-circle distance from a
// reference point. It is pure computation and performs no I/O.
package nearby

import (
	"math"
	"sort"
	"strings"

	"spotfm/internal/db"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DefaultRadiusKm is the search radius used when the caller does not supply
// one.
const DefaultRadiusKm = 10.0

// Candidate pairs a profile with its computed distance from the reference
// point. Candidates are derived per lookup and never persisted.
type Candidate struct {
	Profile    db.Profile
	DistanceKm float64
}

// Distance computes the haversine great-circle distance in kilometers
// between two points given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// RankByDistance filters candidates to those within radiusKm of the
// reference point and returns them closest first. The radius boundary is
// inclusive. Candidates without a usable coordinate pair are skipped. Equal
// distances are ordered by username so the ranking is stable.
func RankByDistance(refLat, refLon float64, candidates []db.Profile, radiusKm float64) []Candidate {
	ranked := make([]Candidate, 0, len(candidates))
	for _, p := range candidates {
		if !p.HasLocation() {
			continue
		}
		dist := Distance(refLat, refLon, *p.Latitude, *p.Longitude)
		if dist > radiusKm {
			continue
		}
		ranked = append(ranked, Candidate{Profile: p, DistanceKm: dist})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DistanceKm != ranked[j].DistanceKm {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}
		return strings.ToLower(ranked[i].Profile.Username) < strings.ToLower(ranked[j].Profile.Username)
	})

	return ranked
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
