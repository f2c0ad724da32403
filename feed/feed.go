package feed

import (
	"fmt"
	"strings"
)

// Kind identifies what a feed endpoint serves.
type Kind string

const (
	Static           Kind = "static"
	TripUpdates      Kind = "trip_updates"
	VehiclePositions Kind = "vehicle_positions"
)

// Realtime reports whether k is one of the GTFS-RT feed kinds.
func (k Kind) Realtime() bool {
	return k == TripUpdates || k == VehiclePositions
}

// ParseKind accepts full kind names plus the tu/vp shorthand used on the
// command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return Static, nil
	case "tu", "trip_updates", "tripupdates":
		return TripUpdates, nil
	case "vp", "vehicle_positions", "vehiclepositions":
		return VehiclePositions, nil
	}
	return "", fmt.Errorf("unknown feed kind %q", s)
}

// Descriptor identifies one feed endpoint. Descriptors come from
// configuration and are immutable once built.
type Descriptor struct {
	URL  string
	Kind Kind
	Name string // agency label, "" when the feed is unnamed
}

// String renders a short label for logs.
func (d Descriptor) String() string {
	if d.Name != "" {
		return d.Name + "/" + string(d.Kind)
	}
	return string(d.Kind) + " " + d.URL
}
