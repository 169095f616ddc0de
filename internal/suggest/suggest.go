// Package suggest ranks free zones for a party of a given size.
package suggest

import (
	"slices"

	"github.com/playperu/beachclub/internal/beachclub"
)

// MaxResults caps the shortlist.
const MaxResults = 5

type Suggestion struct {
	Zone  beachclub.Zone `json:"zone"`
	Score int            `json:"score"`
}

// Score returns the fit of zone z for guests and whether it can seat them
// at all. Undersized zones never qualify.
func Score(guests int, z beachclub.Zone) (int, bool) {
	if guests < 1 || z.Capacity < guests {
		return 0, false
	}

	var score int
	switch {
	case z.Capacity == guests:
		score = 100
	case z.Capacity <= guests+2:
		score = 80
	default:
		score = 50
	}

	switch {
	case guests >= 6 && z.Type == beachclub.ZoneVIPCabin:
		score += 20
	case guests <= 2 && z.Type == beachclub.ZoneSeaHut:
		score += 15
	case guests >= 4 && guests <= 6 && z.Type == beachclub.ZoneStandardCabin:
		score += 10
	}
	return score, true
}

// Zones returns at most MaxResults free zones able to seat guests, best
// score first. Equal scores keep the input order. Zones that are not free
// are skipped.
func Zones(guests int, zones []beachclub.Zone) []Suggestion {
	out := make([]Suggestion, 0, len(zones))
	for _, z := range zones {
		if z.Status != beachclub.ZoneFree {
			continue
		}
		if s, ok := Score(guests, z); ok {
			out = append(out, Suggestion{Zone: z, Score: s})
		}
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		return b.Score - a.Score
	})

	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}
