package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/docqa/internal/app"
	"github.com/efebarandurmaz/docqa/internal/config"
	"github.com/efebarandurmaz/docqa/internal/observability"
)

// cli holds the state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "docqa",
		Short:         "Answer questions from uploaded documents",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "configs/docqa.yaml", "Config file path")

	rootCmd.AddCommand(
		newServeCmd(c),
		newIngestCmd(c),
		newAskCmd(c),
		newChatCmd(c),
		newExtractCmd(c),
		newNormalizeCmd(c),
	)
	return rootCmd
}

// setup loads .env, the config file and the environment, then installs the
// process logger.
func (c *cli) setup() error {
	_ = godotenv.Load()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slog.SetDefault(c.logger)
	return nil
}

// open wires the components and returns a cleanup function.
func (c *cli) open(ctx context.Context) (*app.App, func(), error) {
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(context.Background()); err != nil {
			c.logger.Warn("shutdown", "error", err)
		}
	}, nil
}
