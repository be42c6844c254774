package carrier

import (
	"sort"
	"time"
)

// SortDeliveries orders deliveries for display, most relevant first. The
// input is not mutated, the sort is stable (equal-ranked deliveries keep
// their input order), and the result is a pure function of the delivery
// list and the snapshots.
//
// Precedence, first discriminating rule wins:
//  1. deliveries with known packages before deliveries with none
//  2. fully delivered before not fully delivered
//  3. a resolvable nearest delivery date before none
//  4. at least one delivered package before none
//  5. fewer days until the nearest date first; exact ties fall back to 4
func SortDeliveries(deliveries []Delivery, snapshots map[string]Snapshot, now time.Time) []Delivery {
	sorted := make([]Delivery, len(deliveries))
	copy(sorted, deliveries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareDeliveries(&sorted[i], &sorted[j], snapshots, now) < 0
	})
	return sorted
}

// compareDeliveries returns a negative value when a ranks before b, positive
// when b ranks before a, and zero when they are equal-ranked.
func compareDeliveries(a, b *Delivery, snapshots map[string]Snapshot, now time.Time) int {
	pa := snapshots[a.ID].Packages
	pb := snapshots[b.ID].Packages

	if c := trueFirst(len(pa) > 0, len(pb) > 0); c != 0 {
		return c
	}
	if c := trueFirst(allDelivered(pa), allDelivered(pb)); c != 0 {
		return c
	}

	na := NearestPackage(pa, now)
	nb := NearestPackage(pb, now)
	if c := trueFirst(na != nil, nb != nil); c != 0 {
		return c
	}
	if na == nil {
		return trueFirst(anyDelivered(pa), anyDelivered(pb))
	}

	da := DayDifference(*na.DeliveryDate, now)
	db := DayDifference(*nb.DeliveryDate, now)
	if da != db {
		if da < db {
			return -1
		}
		return 1
	}
	return trueFirst(anyDelivered(pa), anyDelivered(pb))
}

// trueFirst ranks true before false.
func trueFirst(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

func allDelivered(pkgs []Package) bool {
	if len(pkgs) == 0 {
		return false
	}
	for _, p := range pkgs {
		if !p.Delivered {
			return false
		}
	}
	return true
}

func anyDelivered(pkgs []Package) bool {
	for _, p := range pkgs {
		if p.Delivered {
			return true
		}
	}
	return false
}
