package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/RailOpsData/adaptive-signal-open-data/gtfsrt"
)

// NATSPublisher publishes realtime records to a subject tree rooted at a
// configurable prefix, one subject per feed type and feed name.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials the NATS server. An empty prefix defaults to "gtfs", so
// records land on subjects like gtfs.trip_updates.metro.
func Connect(url, name, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	if prefix == "" {
		prefix = "gtfs"
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// PublishRealtime publishes every record in the snapshot as one JSON
// message and flushes before returning.
func (p *NATSPublisher) PublishRealtime(ctx context.Context, snap *gtfsrt.Snapshot) error {
	subject := fmt.Sprintf("%s.%s.%s", p.prefix, snap.FeedType, subjectToken(snap.FeedName))

	publish := func(record any) error {
		b, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		return p.nc.Publish(subject, b)
	}
	for _, r := range snap.TripUpdates {
		if err := publish(r); err != nil {
			return err
		}
	}
	for _, r := range snap.VehiclePositions {
		if err := publish(r); err != nil {
			return err
		}
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush publishes: %w", err)
	}
	log.WithFields(log.Fields{
		"subject": subject,
		"records": snap.RecordCount(),
	}).Debug("Published realtime records")
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// subjectToken reduces a feed name to a single NATS subject token.
// Tokens cannot contain spaces, dots, or wildcard characters.
func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unnamed"
	}
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	return repl.Replace(s)
}
