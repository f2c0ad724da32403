package gtfsrt

import (
	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
)

// Parse decodes raw as a GTFS-RT feed message and flattens it into records
// for kind. Entities lacking the payload matching kind, or lacking an id,
// are skipped. Partial messages are tolerated so one defective entity
// cannot fail its siblings; an envelope that cannot be decoded, or that has
// no header, is a hard Decode failure.
func Parse(raw []byte, kind feed.Kind) (*Snapshot, error) {
	switch kind {
	case feed.TripUpdates, feed.VehiclePositions:
	default:
		return nil, feed.Errf(feed.ErrUnsupportedKind, "cannot parse feed kind %q as realtime", kind)
	}

	var fm gtfsrtpb.FeedMessage
	if err := (proto.UnmarshalOptions{AllowPartial: true}).Unmarshal(raw, &fm); err != nil {
		return nil, feed.Errf(feed.ErrDecode, "decoding feed message: %w", err)
	}
	if fm.Header == nil {
		return nil, feed.Errf(feed.ErrDecode, "feed message has no header")
	}

	snap := &Snapshot{FeedType: kind}
	if fm.Header.Timestamp != nil {
		snap.HeaderTimestamp = int64(*fm.Header.Timestamp)
	}
	if fm.Header.GtfsRealtimeVersion != nil {
		snap.Version = *fm.Header.GtfsRealtimeVersion
	}

	for _, e := range fm.Entity {
		if e == nil || e.Id == nil {
			snap.SkippedEntities++
			continue
		}
		switch kind {
		case feed.TripUpdates:
			if e.TripUpdate == nil {
				snap.SkippedEntities++
				continue
			}
			snap.TripUpdates = append(snap.TripUpdates, tripUpdateRecord(*e.Id, e.TripUpdate))
		case feed.VehiclePositions:
			if e.Vehicle == nil {
				snap.SkippedEntities++
				continue
			}
			snap.VehiclePositions = append(snap.VehiclePositions, vehiclePositionRecord(*e.Id, e.Vehicle))
		}
	}
	return snap, nil
}

func tripUpdateRecord(entityID string, tu *gtfsrtpb.TripUpdate) TripUpdateRecord {
	rec := TripUpdateRecord{EntityID: entityID}
	if trip := tu.Trip; trip != nil {
		rec.TripID = trip.TripId
		rec.RouteID = trip.RouteId
		rec.DirectionID = trip.DirectionId
		rec.StartTime = trip.StartTime
		rec.StartDate = trip.StartDate
	}
	if tu.Vehicle != nil {
		rec.VehicleID = tu.Vehicle.Id
	}
	rec.Timestamp = tu.Timestamp
	rec.DelaySeconds = tu.Delay
	return rec
}

func vehiclePositionRecord(entityID string, vp *gtfsrtpb.VehiclePosition) VehiclePositionRecord {
	rec := VehiclePositionRecord{EntityID: entityID}
	if vp.Vehicle != nil {
		rec.VehicleID = vp.Vehicle.Id
	}
	if trip := vp.Trip; trip != nil {
		rec.TripID = trip.TripId
		rec.RouteID = trip.RouteId
		rec.DirectionID = trip.DirectionId
		rec.StartTime = trip.StartTime
		rec.StartDate = trip.StartDate
	}
	rec.CurrentStopSequence = vp.CurrentStopSequence
	if vp.CurrentStatus != nil {
		status := vp.CurrentStatus.String()
		rec.CurrentStatus = &status
	}
	rec.Timestamp = vp.Timestamp
	if pos := vp.Position; pos != nil {
		rec.Latitude = widen(pos.Latitude)
		rec.Longitude = widen(pos.Longitude)
		rec.Bearing = widen(pos.Bearing)
		rec.Speed = widen(pos.Speed)
	}
	return rec
}

func widen(v *float32) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
