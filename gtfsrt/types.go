package gtfsrt

import "github.com/RailOpsData/adaptive-signal-open-data/feed"

// TripUpdateRecord is one flattened trip-update entity. A nil pointer field
// was absent in the source message; absence is never collapsed to a zero
// value.
type TripUpdateRecord struct {
	EntityID     string  `json:"entity_id"`
	TripID       *string `json:"trip_id,omitempty"`
	RouteID      *string `json:"route_id,omitempty"`
	DirectionID  *uint32 `json:"direction_id,omitempty"`
	StartTime    *string `json:"start_time,omitempty"`
	StartDate    *string `json:"start_date,omitempty"`
	VehicleID    *string `json:"vehicle_id,omitempty"`
	Timestamp    *uint64 `json:"timestamp,omitempty"`
	DelaySeconds *int32  `json:"delay,omitempty"`
}

// VehiclePositionRecord is one flattened vehicle-position entity. Position
// fields are set only when the entity carried a position block; a vehicle
// without one still yields a record.
type VehiclePositionRecord struct {
	EntityID            string   `json:"entity_id"`
	VehicleID           *string  `json:"vehicle_id,omitempty"`
	TripID              *string  `json:"trip_id,omitempty"`
	RouteID             *string  `json:"route_id,omitempty"`
	DirectionID         *uint32  `json:"direction_id,omitempty"`
	StartTime           *string  `json:"start_time,omitempty"`
	StartDate           *string  `json:"start_date,omitempty"`
	CurrentStopSequence *uint32  `json:"current_stop_sequence,omitempty"`
	CurrentStatus       *string  `json:"current_status,omitempty"`
	Timestamp           *uint64  `json:"timestamp,omitempty"`
	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	Bearing             *float64 `json:"bearing,omitempty"`
	Speed               *float64 `json:"speed,omitempty"`
}

// Snapshot is one decoded feed message, flattened to records in envelope
// entity order. Exactly one record slice is populated, matching FeedType.
// FeedURL and FeedName are filled in by the ingestor before the snapshot
// reaches storage.
type Snapshot struct {
	FeedType         feed.Kind               `json:"feed_type"`
	HeaderTimestamp  int64                   `json:"header_timestamp,omitempty"`
	Version          string                  `json:"version,omitempty"`
	FeedURL          string                  `json:"feed_url,omitempty"`
	FeedName         string                  `json:"feed_name,omitempty"`
	TripUpdates      []TripUpdateRecord      `json:"trip_updates,omitempty"`
	VehiclePositions []VehiclePositionRecord `json:"vehicle_positions,omitempty"`

	// SkippedEntities counts envelope entities that carried no usable
	// payload for FeedType.
	SkippedEntities int `json:"-"`
}

// RecordCount returns the number of extracted records.
func (s *Snapshot) RecordCount() int {
	return len(s.TripUpdates) + len(s.VehiclePositions)
}
