// Package storage persists parsed feed data. Snapshots are written as
// timestamped JSON files under a per-kind directory tree, optionally
// alongside the raw fetched bytes, and an optional sqlite catalog keeps
// an index of everything written.
package storage
