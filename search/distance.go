package search

import (
	"math"
	"sort"

	"github.com/sidhant-sriv/looply-api/models"
)

const earthRadiusKm = 6371.0

type Point struct {
	Lat float64
	Lng float64
}

// DistanceKm is the great-circle (haversine) distance between a and b.
func DistanceKm(a, b Point) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// located reports whether the listing carries coordinates. 0,0 means the
// owner only gave an address.
func located(l models.Listing) bool {
	return l.Location.Lat != 0 || l.Location.Lng != 0
}

// Within applies the distance part of f to listings already filtered and
// ordered by Apply. Unlocated listings are dropped under max_distance and
// sorted last under distance ordering.
func (f Filters) Within(listings []models.Listing) []models.Listing {
	if f.Origin == nil {
		return listings
	}
	origin := *f.Origin

	kept := listings[:0:0]
	for _, l := range listings {
		if f.MaxDistance != nil {
			if !located(l) || DistanceKm(origin, Point{l.Location.Lat, l.Location.Lng}) > *f.MaxDistance {
				continue
			}
		}
		kept = append(kept, l)
	}

	if f.Sort == SortDistance {
		sort.SliceStable(kept, func(i, j int) bool {
			li, lj := kept[i], kept[j]
			if located(li) != located(lj) {
				return located(li)
			}
			return DistanceKm(origin, Point{li.Location.Lat, li.Location.Lng}) <
				DistanceKm(origin, Point{lj.Location.Lat, lj.Location.Lng})
		})
	}
	return kept
}

// Paginate slices one page out of an in-memory result.
func (f Filters) Paginate(listings []models.Listing) []models.Listing {
	start := f.Offset()
	if start >= len(listings) {
		return []models.Listing{}
	}
	end := start + f.PageSize
	if end > len(listings) {
		end = len(listings)
	}
	return listings[start:end]
}
