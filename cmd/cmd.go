package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/webitel/player-sync-service/config"
)

const (
	ServiceName      = "player-sync-service"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Keeps player data in sync across a network of servers",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:      "server",
		Aliases:   []string{"s"},
		Usage:     "Run the sync node",
		ArgsUsage: "[-- --key=value ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config_file",
				Usage:   "Path to the configuration file",
				EnvVars: []string{config.EnvPrefix + "_CONFIG_FILE"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, v, err := config.LoadConfig(c.String("config_file"), c.Args().Slice())
			if err != nil {
				return err
			}
			if cfg.Server.ID == "" {
				cfg.Server.ID = uuid.NewString()[:8]
			}

			level := new(slog.LevelVar)
			lvl, _ := config.ParseLevel(cfg.Log.Level) // validated by LoadConfig
			level.Set(lvl)
			logger := NewLogger(cfg.Log.Format, level).With(
				"service", ServiceName,
				"server_id", cfg.Server.ID,
			)
			slog.SetDefault(logger)

			// [HOT_RELOAD] only the log level is applied live
			config.Watch(v, logger, func(next *config.Config) {
				if l, err := config.ParseLevel(next.Log.Level); err == nil {
					level.Set(l)
				}
			})

			logger.Info("SERVICE_STARTING",
				"version", version,
				"commit", commit,
				"commit_date", commitDate,
				"branch", branch,
				"build_ts", buildTimestamp,
			)

			app := NewApp(cfg, logger)
			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			logger.Info("SERVICE_STOPPING")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return app.Stop(ctx)
		},
	}
}
