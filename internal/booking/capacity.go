package booking

import "github.com/finicafferata/eme-studio-api/internal/model"

// Frame sizes are the booking sub-categories of a class.  Each size
// has its own capacity bucket; admission is evaluated strictly per
// size, never against the overall class capacity.
const (
	FrameSmall  = "SMALL"
	FrameMedium = "MEDIUM"
	FrameLarge  = "LARGE"
)

// ValidFrameSize reports whether s names a known frame size.
func ValidFrameSize(s string) bool {
	switch s {
	case FrameSmall, FrameMedium, FrameLarge:
		return true
	}
	return false
}

// Distribution counts active reservations per frame size.  It is
// returned alongside every capacity decision so callers can surface
// the current occupancy to clients (e.g. in an override-required
// response).
type Distribution struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
}

// Total returns the overall number of counted reservations.
func (d Distribution) Total() int { return d.Small + d.Medium + d.Large }

// Capacities holds the declared per-size spot counts of a class.
type Capacities struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
}

// CapacitiesOf extracts the per-size capacities from a class row.
func CapacitiesOf(c *model.Class) Capacities {
	return Capacities{
		Small:  int(c.SmallCapacity),
		Medium: int(c.MediumCapacity),
		Large:  int(c.LargeCapacity),
	}
}

// Evaluate decides whether a class admits one more reservation of the
// requested frame size.  existing lists the frame sizes of all
// reservations that currently occupy a spot (CONFIRMED or CHECKED_IN).
// The decision is strictly per size: a class can be "not full" overall
// while the requested size is exhausted.  Pure function, no side
// effects.
func Evaluate(existing []string, caps Capacities, requested string) (bool, Distribution) {
	var dist Distribution
	for _, fs := range existing {
		switch fs {
		case FrameSmall:
			dist.Small++
		case FrameMedium:
			dist.Medium++
		case FrameLarge:
			dist.Large++
		}
	}
	switch requested {
	case FrameSmall:
		return dist.Small < caps.Small, dist
	case FrameMedium:
		return dist.Medium < caps.Medium, dist
	case FrameLarge:
		return dist.Large < caps.Large, dist
	}
	return false, dist
}
