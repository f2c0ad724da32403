package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
	"github.com/RailOpsData/adaptive-signal-open-data/gtfs"
	"github.com/RailOpsData/adaptive-signal-open-data/gtfsrt"
)

// SnapshotConfig configures a SnapshotStore.
type SnapshotConfig struct {
	// Dir is the root of the snapshot tree. Each feed kind writes into
	// its own subdirectory.
	Dir string
	// ArchiveRealtimeRaw writes the fetched protobuf bytes next to each
	// realtime snapshot.
	ArchiveRealtimeRaw bool
	// ArchiveStaticRaw writes the fetched zip next to each static
	// snapshot.
	ArchiveStaticRaw bool
	// Catalog, when set, indexes every written snapshot. Catalog
	// failures are logged, not returned; the files on disk are the
	// primary artifact.
	Catalog *Catalog
}

// SnapshotStore writes parsed feed data as timestamped JSON snapshots.
// It is safe for concurrent use; each call writes distinct files.
type SnapshotStore struct {
	cfg SnapshotConfig
}

func NewSnapshotStore(cfg SnapshotConfig) (*SnapshotStore, error) {
	if cfg.Dir == "" {
		return nil, errors.New("snapshot directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &SnapshotStore{cfg: cfg}, nil
}

type realtimeSnapshot struct {
	CapturedAt string `json:"captured_at"`
	*gtfsrt.Snapshot
}

type staticSnapshot struct {
	CapturedAt string `json:"captured_at"`
	*gtfs.TableSet
}

// StoreRealtime writes one realtime snapshot, e.g.
// trip_updates/gtfs_rt_trip_updates_metro_20260825_120000.json.
func (s *SnapshotStore) StoreRealtime(ctx context.Context, snap *gtfsrt.Snapshot, feedURL string, raw []byte, capturedAt, feedName string) error {
	dir, err := s.kindDir(string(snap.FeedType))
	if err != nil {
		return err
	}

	stem := snapshotStem("gtfs_rt_"+string(snap.FeedType), feedName, capturedAt)
	payload, err := json.MarshalIndent(realtimeSnapshot{CapturedAt: capturedAt, Snapshot: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(dir, stem+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if s.cfg.ArchiveRealtimeRaw && len(raw) > 0 {
		if err := os.WriteFile(filepath.Join(dir, stem+".pb"), raw, 0o644); err != nil {
			return fmt.Errorf("failed to archive raw payload: %w", err)
		}
	}

	s.index(ctx, CatalogEntry{
		FeedURL:    feedURL,
		FeedName:   feedName,
		Kind:       snap.FeedType,
		CapturedAt: capturedAt,
		Path:       path,
		Records:    snap.RecordCount(),
		SizeBytes:  int64(len(payload)),
	})
	return nil
}

// StoreStatic writes one static table-set snapshot, e.g.
// static/gtfs_static_metro_20260825_120000.json.
func (s *SnapshotStore) StoreStatic(ctx context.Context, tables *gtfs.TableSet, feedURL string, raw []byte, capturedAt, feedName string) error {
	dir, err := s.kindDir(string(feed.Static))
	if err != nil {
		return err
	}

	stem := snapshotStem("gtfs_static", feedName, capturedAt)
	payload, err := json.MarshalIndent(staticSnapshot{CapturedAt: capturedAt, TableSet: tables}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(dir, stem+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if s.cfg.ArchiveStaticRaw && len(raw) > 0 {
		if err := os.WriteFile(filepath.Join(dir, stem+".zip"), raw, 0o644); err != nil {
			return fmt.Errorf("failed to archive raw zip: %w", err)
		}
	}

	s.index(ctx, CatalogEntry{
		FeedURL:    feedURL,
		FeedName:   feedName,
		Kind:       feed.Static,
		CapturedAt: capturedAt,
		Path:       path,
		Records:    tables.RowCount(),
		SizeBytes:  int64(len(payload)),
	})
	return nil
}

func (s *SnapshotStore) kindDir(kind string) (string, error) {
	dir := filepath.Join(s.cfg.Dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", kind, err)
	}
	return dir, nil
}

func (s *SnapshotStore) index(ctx context.Context, entry CatalogEntry) {
	if s.cfg.Catalog == nil {
		return
	}
	if err := s.cfg.Catalog.Record(ctx, entry); err != nil {
		log.WithField("path", entry.Path).Warnf("Failed to catalog snapshot: %v", err)
	}
}

// snapshotStem builds a snapshot file stem from its parts. The feed-name
// token is omitted for unnamed feeds.
func snapshotStem(prefix, feedName, capturedAt string) string {
	parts := []string{prefix}
	if token := nameToken(feedName); token != "" {
		parts = append(parts, token)
	}
	parts = append(parts, capturedAt)
	return strings.Join(parts, "_")
}

// nameToken reduces a feed name to a filename-safe token: lowercase, with
// runs of anything outside [a-z0-9] collapsed to single hyphens.
func nameToken(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
