// Command funnelboard runs the funnelboard API server and its maintenance
// commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/funnelboard/funnelboard/internal/config"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "funnelboard",
		Short:         "Funnelboard API server",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("funnelboard {{.Version}}\n")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")

	loadConfig := func() (*config.Config, *logrus.Logger, error) {
		cfg, err := config.LoadFile(envFile)
		if err != nil {
			return nil, nil, err
		}
		log, err := newLogger(cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log, nil
	}

	root.AddCommand(newServeCmd(loadConfig))
	root.AddCommand(newMigrateCmd(loadConfig))
	root.AddCommand(newUserCmd(loadConfig))
	return root
}

type configLoader func() (*config.Config, *logrus.Logger, error)

// newLogger builds the JSON logger the server and its commands share.
func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	return log, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("funnelboard exited with error")
		stop()
		os.Exit(1) //nolint:gocritic // stop already called.
	}
}
