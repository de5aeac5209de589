package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/smarthunt/realtime-service/config"
	"github.com/urfave/cli/v2"
)

const ServiceName = "smarthunt-realtime"

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Realtime notification delivery for the SmartHunt platform",
		Commands: []*cli.Command{
			serverCmd(),
			monitorCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the realtime delivery server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			configFile := c.String("config_file")
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			// Hot reload: only the log level is safe to change at runtime.
			if err := config.Watch(configFile, func(fresh *config.Config) {
				applyLogLevel(fresh.Log.Level)
			}); err != nil {
				slog.Warn("config watch unavailable", "error", err)
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}
