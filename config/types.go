package config

import (
	"time"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
)

// ServerConfig contains the ops HTTP server configuration. Port 0
// disables the server.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// GTFSConfig contains a feed's static GTFS configuration.
type GTFSConfig struct {
	StaticURL string `yaml:"staticURL" validate:"omitempty,url"`
}

// GTFSRTConfig contains a feed's GTFS-Realtime endpoints.
type GTFSRTConfig struct {
	TripUpdatesURL      string `yaml:"tripUpdatesURL" validate:"omitempty,url"`
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
}

// Feed represents a single configured transit data source.
type Feed struct {
	Name   string       `yaml:"name" validate:"required"`
	GTFS   GTFSConfig   `yaml:"gtfs"`
	GTFSRT GTFSRTConfig `yaml:"gtfsrt"`
}

// QuietHours is a daily window during which scheduled collection is
// suppressed. Both bounds must be set to enable it.
type QuietHours struct {
	Start    string `yaml:"start" validate:"required_with=End,omitempty,datetime=15:04"`
	End      string `yaml:"end" validate:"required_with=Start,omitempty,datetime=15:04"`
	Timezone string `yaml:"timezone" validate:"omitempty,timezone"`
}

func (q QuietHours) Enabled() bool {
	return q.Start != "" && q.End != ""
}

// CollectorConfig tunes the collection loop.
type CollectorConfig struct {
	IntervalSeconds     int        `yaml:"intervalSeconds" validate:"gte=0"`
	FetchTimeoutSeconds int        `yaml:"fetchTimeoutSeconds" validate:"gte=0"`
	DataDir             string     `yaml:"dataDir"`
	CatalogPath         string     `yaml:"catalogPath"`
	StaticOnFirstCycle  *bool      `yaml:"staticOnFirstCycle"`
	Kinds               []string   `yaml:"kinds" validate:"dive,oneof=static trip_updates vehicle_positions tu vp"`
	QuietHours          QuietHours `yaml:"quietHours"`

	// Environment-only toggles, folded in by the loader.
	ArchiveRealtimeRaw bool `yaml:"-"`
	ArchiveStaticRaw   bool `yaml:"-"`
}

func (c CollectorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c CollectorConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// KindFilter parses the configured kind names, accepting the tu/vp
// shorthands.
func (c CollectorConfig) KindFilter() ([]feed.Kind, error) {
	var kinds []feed.Kind
	for _, k := range c.Kinds {
		kind, err := feed.ParseKind(k)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// NATSConfig enables record publishing when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Collector CollectorConfig `yaml:"collector"`
	NATS      NATSConfig      `yaml:"nats"`
	Feeds     []Feed          `yaml:"feeds" validate:"required,min=1,dive"`
}

// StaticDescriptors returns one descriptor per feed that carries a
// static archive URL.
func (c *AppConfig) StaticDescriptors() []feed.Descriptor {
	var out []feed.Descriptor
	for _, f := range c.Feeds {
		if f.GTFS.StaticURL != "" {
			out = append(out, feed.Descriptor{URL: f.GTFS.StaticURL, Kind: feed.Static, Name: f.Name})
		}
	}
	return out
}

// RealtimeDescriptors returns the trip-update and vehicle-position
// descriptors of every feed, in config order.
func (c *AppConfig) RealtimeDescriptors() []feed.Descriptor {
	var out []feed.Descriptor
	for _, f := range c.Feeds {
		if f.GTFSRT.TripUpdatesURL != "" {
			out = append(out, feed.Descriptor{URL: f.GTFSRT.TripUpdatesURL, Kind: feed.TripUpdates, Name: f.Name})
		}
		if f.GTFSRT.VehiclePositionsURL != "" {
			out = append(out, feed.Descriptor{URL: f.GTFSRT.VehiclePositionsURL, Kind: feed.VehiclePositions, Name: f.Name})
		}
	}
	return out
}

// SelectFeed narrows the config to the named feed. An empty name keeps
// every feed. It reports whether the name matched.
func (c *AppConfig) SelectFeed(name string) bool {
	if name == "" {
		return true
	}
	for _, f := range c.Feeds {
		if f.Name == name {
			c.Feeds = []Feed{f}
			return true
		}
	}
	return false
}
