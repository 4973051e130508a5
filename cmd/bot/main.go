package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rxtech-lab/argo-bot/internal/config"
	"github.com/rxtech-lab/argo-bot/internal/strategy"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/rxtech-lab/argo-bot/internal/version"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}

func strategiesAction(_ context.Context, cmd *cli.Command) error {
	_, err := fmt.Fprintln(cmd.Root().Writer, strings.Join(strategy.Names(), "\n"))

	return err
}

func statsAction(_ context.Context, cmd *cli.Command) error {
	stats, err := types.ReadSessionStats(cmd.String("file"))
	if err != nil {
		return err
	}

	if err := version.CheckStatsCompatibility(stats.Version, version.GetVersion()); err != nil {
		return err
	}

	return yaml.NewEncoder(cmd.Root().Writer).Encode(stats)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "argo-bot",
		Usage:   "Run a scheduled trading strategy against Binance",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start trading with a config file until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML config `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "log-level",
						Usage:    "Override the log level of the config file (debug, info, warn, error)",
						Required: false,
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the config file",
				Action: schemaAction,
			},
			{
				Name:   "strategies",
				Usage:  "List the built-in strategies",
				Action: strategiesAction,
			},
			{
				Name:  "stats",
				Usage: "Print session stats written by a previous run",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the stats `FILE`",
						Required: true,
					},
				},
				Action: statsAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
