// Package publisher forwards freshly stored realtime records to NATS so
// downstream consumers learn about new data without polling the snapshot
// directory. Publishing is best-effort; the ingestion pipeline treats
// publish failures as warnings.
package publisher
