package carrier

import (
	"fmt"
	"time"
)

// IconState classifies a delivery's packages for display. Unknown is
// distinct from in-progress: it means no package data exists yet, which is
// the case before the first successful refresh.
type IconState string

const (
	IconUnknown       IconState = "unknown"
	IconAllDelivered  IconState = "all_delivered"
	IconSomeDelivered IconState = "some_delivered"
	IconInProgress    IconState = "in_progress"
)

// StatusColor tags status text for display.
type StatusColor string

const (
	ColorNone    StatusColor = ""
	ColorWarning StatusColor = "warning"
	ColorSuccess StatusColor = "success"
	ColorInfo    StatusColor = "info"
)

// Status is the rendered status line for one delivery.
type Status struct {
	Text  string      `json:"text"`
	Color StatusColor `json:"color,omitempty"`
}

// IconStateFor classifies a delivery's packages. A nil or empty package
// list is valid "no data yet" input and maps to IconUnknown.
func IconStateFor(pkgs []Package) IconState {
	if len(pkgs) == 0 {
		return IconUnknown
	}
	delivered := 0
	for _, p := range pkgs {
		if p.Delivered {
			delivered++
		}
	}
	switch delivered {
	case len(pkgs):
		return IconAllDelivered
	case 0:
		return IconInProgress
	default:
		return IconSomeDelivered
	}
}

// DayDifference returns the number of days from now until date, rounded up.
// A date in the past reports zero, never a negative count.
func DayDifference(date, now time.Time) int {
	diff := date.Sub(now)
	if diff <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	days := int(diff / day)
	if diff%day != 0 {
		days++
	}
	return days
}

// NearestPackage returns the package whose delivery date is closest to now
// in absolute terms; a date already in the past can win over one further in
// the future. Packages without a date are ignored, and nil is returned when
// none has one.
func NearestPackage(pkgs []Package, now time.Time) *Package {
	var nearest *Package
	var best time.Duration
	for i := range pkgs {
		p := &pkgs[i]
		if p.DeliveryDate == nil {
			continue
		}
		d := p.DeliveryDate.Sub(now)
		if d < 0 {
			d = -d
		}
		if nearest == nil || d < best {
			nearest = p
			best = d
		}
	}
	return nearest
}

// StatusFor renders the status line for a delivery's packages.
func StatusFor(pkgs []Package, now time.Time) Status {
	if len(pkgs) == 0 {
		return Status{Text: "No packages", Color: ColorWarning}
	}

	delivered := 0
	for _, p := range pkgs {
		if p.Delivered {
			delivered++
		}
	}
	if delivered == len(pkgs) {
		return Status{Text: "Delivered", Color: ColorSuccess}
	}

	text := "En route"
	if nearest := NearestPackage(pkgs, now); nearest != nil {
		text = arrivalText(DayDifference(*nearest.DeliveryDate, now))
	}
	if delivered > 0 {
		return Status{Text: text + "; some packages delivered", Color: ColorInfo}
	}
	return Status{Text: text}
}

func arrivalText(days int) string {
	switch days {
	case 0:
		return "Arriving today"
	case 1:
		return "Arriving in 1 day"
	default:
		return fmt.Sprintf("Arriving in %d days", days)
	}
}
