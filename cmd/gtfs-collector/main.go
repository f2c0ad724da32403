package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "gtfs-collector",
		Usage: "Collect GTFS static and realtime feeds into timestamped snapshots",
		Description: `Fetches configured GTFS static archives and GTFS-Realtime protobuf
feeds, parses them, and writes timestamped JSON snapshots to the data
directory. Runs either once (collect) or on a fixed cadence (run).`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the collector config file",
				EnvVars: []string{"GTFS_COLLECTOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level: debug, info, warn, error",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			return initLogging(ctx.String("log-level"))
		},
		Commands: []*cli.Command{
			collectCmd(),
			runCmd(),
			snapshotsCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func initLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}
