package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/RailOpsData/adaptive-signal-open-data/config"
	"github.com/RailOpsData/adaptive-signal-open-data/feed"
	"github.com/RailOpsData/adaptive-signal-open-data/fetch"
	"github.com/RailOpsData/adaptive-signal-open-data/ingest"
	"github.com/RailOpsData/adaptive-signal-open-data/metrics"
	"github.com/RailOpsData/adaptive-signal-open-data/publisher"
	"github.com/RailOpsData/adaptive-signal-open-data/scheduler"
	"github.com/RailOpsData/adaptive-signal-open-data/storage"
)

func collectCmd() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Ingest every configured feed once and exit",
		Description: `Runs one ingestion pass over the configured feeds: static archives
first, then the realtime feeds concurrently. Exits non-zero when any
feed fails.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "feed",
				Usage: "Restrict collection to one named feed",
			},
			&cli.StringFlag{
				Name:  "kinds",
				Usage: "Comma-separated feed kinds to collect: static,tu,vp",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			kinds, err := resolveKinds(ctx, cfg)
			if err != nil {
				return err
			}

			ing, cleanup, err := buildIngestor(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			staticDescs := cfg.StaticDescriptors()
			rtDescs := cfg.RealtimeDescriptors()

			var results ingest.Results
			if len(kinds) == 0 {
				results = ing.IngestAll(runCtx, staticDescs, rtDescs)
			} else {
				includeStatic, rtKinds := splitKinds(kinds)
				if includeStatic {
					results = append(results, ing.IngestStaticFeeds(runCtx, staticDescs)...)
				}
				if len(rtKinds) > 0 {
					results = append(results, ing.IngestRealtimeFeeds(runCtx, rtDescs, rtKinds...)...)
				}
			}

			log.WithFields(log.Fields{
				"succeeded": results.Successes(),
				"feeds":     len(results),
			}).Info("Collection complete")

			if !results.AllSucceeded() {
				return fmt.Errorf("%d of %d feeds failed", len(results)-results.Successes(), len(results))
			}
			return nil
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Collect feeds continuously until interrupted",
		Description: `Starts the ingestion scheduler and runs cycles at the configured
interval until SIGINT or SIGTERM. When a server port is configured the
process also exposes /metrics and /healthz.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "feed",
				Usage: "Restrict collection to one named feed",
			},
			&cli.StringFlag{
				Name:  "kinds",
				Usage: "Comma-separated feed kinds to collect: static,tu,vp",
			},
			&cli.BoolFlag{
				Name:  "full-refresh",
				Usage: "Re-ingest static feeds on every cycle instead of only the first",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			kinds, err := resolveKinds(ctx, cfg)
			if err != nil {
				return err
			}
			quiet, err := quietWindow(cfg)
			if err != nil {
				return err
			}

			ing, cleanup, err := buildIngestor(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			staticDescs := cfg.StaticDescriptors()
			rtDescs := cfg.RealtimeDescriptors()
			includeStatic, rtKinds := true, kinds
			if len(kinds) > 0 {
				includeStatic, rtKinds = splitKinds(kinds)
				if len(rtKinds) == 0 {
					rtDescs = nil
				}
			}

			collector := metrics.NewCollector()
			sched := scheduler.New(ing, staticDescs, rtDescs, scheduler.Options{
				Interval:           cfg.Collector.Interval(),
				Kinds:              rtKinds,
				Quiet:              quiet,
				StaticOnFirstCycle: includeStatic && *cfg.Collector.StaticOnFirstCycle,
				Observer:           collector,
			})

			var ops *metrics.Server
			if cfg.Server.Port > 0 {
				ops = metrics.NewServer(cfg.Server.Port, collector)
				ops.Start()
			}

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.WithFields(log.Fields{
				"interval":    cfg.Collector.Interval(),
				"feeds":       len(cfg.Feeds),
				"quiet_hours": quiet.String(),
			}).Info("Starting collector")

			if ctx.Bool("full-refresh") {
				sched.RunFullRefresh(runCtx)
			} else {
				sched.Run(runCtx)
			}

			if ops != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := ops.Shutdown(shutdownCtx); err != nil {
					log.Errorf("Ops server shutdown error: %v", err)
				}
			}
			return nil
		},
	}
}

func snapshotsCmd() *cli.Command {
	return &cli.Command{
		Name:  "snapshots",
		Usage: "List recently written snapshots from the catalog",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "Maximum number of entries to list",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}
			if cfg.Collector.CatalogPath == "" {
				return errors.New("no collector.catalogPath configured")
			}

			catalog, err := storage.OpenCatalog(cfg.Collector.CatalogPath)
			if err != nil {
				return err
			}
			defer catalog.Close()

			entries, err := catalog.Recent(ctx.Context, ctx.Int("limit"))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("catalog is empty")
				return nil
			}
			for _, e := range entries {
				name := e.FeedName
				if name == "" {
					name = "-"
				}
				fmt.Printf("%s  %-17s  %-20s  %7d records  %s\n",
					e.CapturedAt, e.Kind, name, e.Records, e.Path)
			}
			return nil
		},
	}
}

// loadConfig reads the config file named by the global --config flag and
// applies the --feed narrowing when the command carries one.
func loadConfig(ctx *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	if name := ctx.String("feed"); name != "" {
		if !cfg.SelectFeed(name) {
			return nil, fmt.Errorf("feed %q is not configured", name)
		}
		log.Infof("Restricting collection to feed %q", name)
	}
	return cfg, nil
}

// resolveKinds merges the --kinds flag with the configured kind filter.
// The flag wins when both are present.
func resolveKinds(ctx *cli.Context, cfg *config.AppConfig) ([]feed.Kind, error) {
	raw := ctx.String("kinds")
	if raw == "" {
		return cfg.Collector.KindFilter()
	}
	var kinds []feed.Kind
	for _, tok := range strings.Split(raw, ",") {
		k, err := feed.ParseKind(tok)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// splitKinds separates a kind filter into the static toggle and the
// realtime subset.
func splitKinds(kinds []feed.Kind) (includeStatic bool, realtime []feed.Kind) {
	for _, k := range kinds {
		if k == feed.Static {
			includeStatic = true
			continue
		}
		realtime = append(realtime, k)
	}
	return includeStatic, realtime
}

// quietWindow builds the scheduler quiet window from config. Absent quiet
// hours yield the zero window, which never suppresses.
func quietWindow(cfg *config.AppConfig) (scheduler.QuietWindow, error) {
	q := cfg.Collector.QuietHours
	if !q.Enabled() {
		return scheduler.QuietWindow{}, nil
	}
	return scheduler.NewQuietWindow(q.Start, q.End, q.Timezone)
}

// buildIngestor wires the fetcher, snapshot store, catalog and optional
// NATS publisher into an ingestor. The returned cleanup releases all of
// them in reverse order and is safe to call exactly once.
func buildIngestor(cfg *config.AppConfig) (*ingest.Ingestor, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	fetcher := fetch.NewFetcher(cfg.Collector.FetchTimeout())
	cleanups = append(cleanups, fetcher.Close)

	storeCfg := storage.SnapshotConfig{
		Dir:                cfg.Collector.DataDir,
		ArchiveRealtimeRaw: cfg.Collector.ArchiveRealtimeRaw,
		ArchiveStaticRaw:   cfg.Collector.ArchiveStaticRaw,
	}
	if cfg.Collector.CatalogPath != "" {
		catalog, err := storage.OpenCatalog(cfg.Collector.CatalogPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("opening snapshot catalog: %w", err)
		}
		cleanups = append(cleanups, func() {
			if err := catalog.Close(); err != nil {
				log.Errorf("Closing snapshot catalog: %v", err)
			}
		})
		storeCfg.Catalog = catalog
	}

	store, err := storage.NewSnapshotStore(storeCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var pub ingest.Publisher
	if cfg.NATS.URL != "" {
		np, err := publisher.Connect(cfg.NATS.URL, "gtfs-collector", cfg.NATS.SubjectPrefix)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		cleanups = append(cleanups, np.Close)
		pub = np
	}

	return ingest.NewIngestor(fetcher, store, pub), cleanup, nil
}
