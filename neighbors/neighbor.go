// Package neighbors finds, for every sampled root, its nearest captured strand
// roots and their blend weights.
package neighbors

import (
	"cmp"
	"slices"
)

// DefaultCount is the number of neighbors kept per root.
const DefaultCount = 3

// Neighbor is one captured strand contributing to a new root.
type Neighbor struct {
	Root   uint32  // vertex index of the captured strand's root
	Dist   float32 // Euclidean distance from the new root
	Weight float32 // normalized blend weight; zero once pruned
}

// Active reports whether the neighbor still contributes.
func (n Neighbor) Active() bool {
	return n.Weight != 0
}

// Weigh assigns inverse-square-distance weights normalized to sum to one.
// Neighbors at distance zero take all the weight, shared equally.
func Weigh(ns []Neighbor) {
	if len(ns) == 0 {
		return
	}

	coincident := 0
	for _, n := range ns {
		if n.Dist == 0 {
			coincident++
		}
	}
	if coincident > 0 {
		w := 1 / float32(coincident)
		for i := range ns {
			if ns[i].Dist == 0 {
				ns[i].Weight = w
			} else {
				ns[i].Weight = 0
			}
		}
		return
	}

	// Relative to the nearest distance, every raw weight lies in [0, 1].
	nearest := float64(ns[0].Dist)
	for _, n := range ns[1:] {
		nearest = min(nearest, float64(n.Dist))
	}
	rel := func(d float32) float64 {
		r := nearest / float64(d)
		return r * r
	}
	var total float64
	for _, n := range ns {
		total += rel(n.Dist)
	}
	for i := range ns {
		ns[i].Weight = float32(rel(ns[i].Dist) / total)
	}
}

// sortNearest orders candidates by distance, then root, so both indexes agree
// on ties.
func sortNearest(ns []Neighbor) {
	slices.SortFunc(ns, func(a, b Neighbor) int {
		if c := cmp.Compare(a.Dist, b.Dist); c != 0 {
			return c
		}
		return cmp.Compare(a.Root, b.Root)
	})
}
