package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config fixture: %v", err)
	}
	return path
}

const fullConfig = `
server:
  port: 9090
collector:
  intervalSeconds: 15
  dataDir: /tmp/gtfs-data
  catalogPath: /tmp/gtfs-data/catalog.db
  kinds: [tu, vp]
  quietHours:
    start: "00:00"
    end: "04:59"
    timezone: UTC
nats:
  url: nats://127.0.0.1:4222
feeds:
  - name: metro
    gtfs:
      staticURL: https://example.com/gtfs.zip
    gtfsrt:
      tripUpdatesURL: https://example.com/tu
      vehiclePositionsURL: https://example.com/vp
  - name: bus
    gtfsrt:
      tripUpdatesURL: https://example.com/bus/tu
`

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Collector.Interval() != 15*time.Second {
		t.Errorf("expected 15s interval, got %s", cfg.Collector.Interval())
	}
	if cfg.Collector.FetchTimeout() != 30*time.Second {
		t.Errorf("expected the 30s default fetch timeout, got %s", cfg.Collector.FetchTimeout())
	}
	if cfg.Collector.DataDir != "/tmp/gtfs-data" {
		t.Errorf("unexpected data dir %q", cfg.Collector.DataDir)
	}
	if cfg.Collector.StaticOnFirstCycle == nil || !*cfg.Collector.StaticOnFirstCycle {
		t.Error("expected staticOnFirstCycle to default to true")
	}
	if !cfg.Collector.QuietHours.Enabled() {
		t.Error("expected quiet hours to be enabled")
	}
	if cfg.NATS.SubjectPrefix != "gtfs" {
		t.Errorf("expected the default subject prefix, got %q", cfg.NATS.SubjectPrefix)
	}
	if len(cfg.Feeds) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(cfg.Feeds))
	}
	if cfg.Feeds[0].Name != "metro" || cfg.Feeds[0].GTFS.StaticURL == "" {
		t.Errorf("unexpected first feed: %+v", cfg.Feeds[0])
	}

	t.Logf("✓ Loaded %d feeds with a %s interval", len(cfg.Feeds), cfg.Collector.Interval())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
feeds:
  - name: metro
    gtfsrt:
      tripUpdatesURL: https://example.com/tu
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Collector.IntervalSeconds != 20 {
		t.Errorf("expected the 20s default interval, got %d", cfg.Collector.IntervalSeconds)
	}
	if cfg.Collector.DataDir != "data/raw" {
		t.Errorf("expected the default data dir, got %q", cfg.Collector.DataDir)
	}
	if cfg.Server.Port != 0 {
		t.Errorf("expected the ops server to default to disabled, got port %d", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoadSearchesDefaultPaths(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}

	if _, err := Load(""); err == nil {
		t.Error("expected an error when no default config exists")
	}

	if err := os.MkdirAll("config", 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	content := "feeds:\n  - name: metro\n    gtfsrt:\n      tripUpdatesURL: https://example.com/tu\n"
	if err := os.WriteFile(filepath.Join("config", "config.yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Feeds) != 1 {
		t.Errorf("expected the fallback path to be read, got %d feeds", len(cfg.Feeds))
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "invalid: yaml: content: [[[")); err == nil {
		t.Error("expected an error for invalid YAML")
	}
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "no feeds",
			content: "server:\n  port: 8080\n",
		},
		{
			name: "feed without name",
			content: `
feeds:
  - gtfsrt:
      tripUpdatesURL: https://example.com/tu
`,
		},
		{
			name: "malformed static url",
			content: `
feeds:
  - name: metro
    gtfs:
      staticURL: not-a-url
`,
		},
		{
			name: "unknown kind",
			content: `
collector:
  kinds: [plane]
feeds:
  - name: metro
    gtfsrt:
      tripUpdatesURL: https://example.com/tu
`,
		},
		{
			name: "quiet hours missing end",
			content: `
collector:
  quietHours:
    start: "00:00"
feeds:
  - name: metro
    gtfsrt:
      tripUpdatesURL: https://example.com/tu
`,
		},
		{
			name: "quiet hours bad bound",
			content: `
collector:
  quietHours:
    start: "25:00"
    end: "04:59"
feeds:
  - name: metro
    gtfsrt:
      tripUpdatesURL: https://example.com/tu
`,
		},
		{
			name: "port out of range",
			content: `
server:
  port: 70000
feeds:
  - name: metro
    gtfsrt:
      tripUpdatesURL: https://example.com/tu
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadEnvToggles(t *testing.T) {
	content := `
feeds:
  - name: metro
    gtfsrt:
      tripUpdatesURL: https://example.com/tu
`
	t.Setenv("ARCHIVE_RAW_PROTOBUF", "true")
	t.Setenv("ARCHIVE_RAW_STATIC_ZIP", "0")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Collector.ArchiveRealtimeRaw {
		t.Error("expected ARCHIVE_RAW_PROTOBUF=true to enable raw archival")
	}
	if cfg.Collector.ArchiveStaticRaw {
		t.Error("expected ARCHIVE_RAW_STATIC_ZIP=0 to stay disabled")
	}

	t.Setenv("ARCHIVE_RAW_PROTOBUF", "maybe")
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Error("expected an error for an unparseable toggle")
	}
}

func TestDescriptorDerivation(t *testing.T) {
	cfg := &AppConfig{
		Feeds: []Feed{
			{
				Name:   "metro",
				GTFS:   GTFSConfig{StaticURL: "https://example.com/gtfs.zip"},
				GTFSRT: GTFSRTConfig{TripUpdatesURL: "https://example.com/tu", VehiclePositionsURL: "https://example.com/vp"},
			},
			{
				Name:   "bus",
				GTFSRT: GTFSRTConfig{TripUpdatesURL: "https://example.com/bus/tu"},
			},
		},
	}

	static := cfg.StaticDescriptors()
	if len(static) != 1 {
		t.Fatalf("expected 1 static descriptor, got %d", len(static))
	}
	if static[0].Kind != feed.Static || static[0].Name != "metro" {
		t.Errorf("unexpected static descriptor: %+v", static[0])
	}

	realtime := cfg.RealtimeDescriptors()
	if len(realtime) != 3 {
		t.Fatalf("expected 3 realtime descriptors, got %d", len(realtime))
	}
	expected := []struct {
		url  string
		kind feed.Kind
	}{
		{"https://example.com/tu", feed.TripUpdates},
		{"https://example.com/vp", feed.VehiclePositions},
		{"https://example.com/bus/tu", feed.TripUpdates},
	}
	for i, want := range expected {
		if realtime[i].URL != want.url || realtime[i].Kind != want.kind {
			t.Errorf("descriptor %d: expected %s %s, got %s %s", i, want.kind, want.url, realtime[i].Kind, realtime[i].URL)
		}
	}
}

func TestSelectFeed(t *testing.T) {
	base := func() *AppConfig {
		return &AppConfig{
			Feeds: []Feed{
				{Name: "metro", GTFSRT: GTFSRTConfig{TripUpdatesURL: "https://example.com/tu"}},
				{Name: "bus", GTFSRT: GTFSRTConfig{TripUpdatesURL: "https://example.com/bus/tu"}},
			},
		}
	}

	cfg := base()
	if !cfg.SelectFeed("bus") {
		t.Fatal("expected the bus feed to match")
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].Name != "bus" {
		t.Errorf("expected only the bus feed to remain, got %+v", cfg.Feeds)
	}

	cfg = base()
	if cfg.SelectFeed("tram") {
		t.Error("expected an unknown feed name to report false")
	}

	cfg = base()
	if !cfg.SelectFeed("") {
		t.Error("expected an empty name to keep every feed")
	}
	if len(cfg.Feeds) != 2 {
		t.Errorf("expected both feeds to remain, got %d", len(cfg.Feeds))
	}
}

func TestKindFilter(t *testing.T) {
	c := CollectorConfig{Kinds: []string{"tu", "vehicle_positions"}}
	kinds, err := c.KindFilter()
	if err != nil {
		t.Fatalf("KindFilter failed: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != feed.TripUpdates || kinds[1] != feed.VehiclePositions {
		t.Errorf("unexpected kinds: %v", kinds)
	}

	c = CollectorConfig{Kinds: []string{"plane"}}
	if _, err := c.KindFilter(); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}
