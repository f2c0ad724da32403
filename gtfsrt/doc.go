// Package gtfsrt decodes GTFS-Realtime protobuf feed messages into flat,
// storage-ready records.
//
// Two feed kinds are supported:
//   - Trip Updates: per-trip delay and timing predictions
//   - Vehicle Positions: current vehicle locations
//
// Parsing is entity-local: a defective entity is skipped and counted, the
// rest of the message survives. Only an undecodable envelope fails the
// whole payload.
package gtfsrt
