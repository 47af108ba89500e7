// Command sensorsql is the command-line front end of the sensor SQL
// playground: one-shot queries, an interactive REPL, the HTTP/gRPC server,
// dataset export and the data simulation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/SimonWaldherr/sensorsql"
	"github.com/SimonWaldherr/sensorsql/internal/config"
	"github.com/SimonWaldherr/sensorsql/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sensorsql",
		Short:         "SQL playground over generated IoT sensor data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("engine", "auto", "query engine: auto, sqlite or fallback")
	pf.Int("size", 100, "number of generated sensor records")
	pf.Int64("seed", 0, "random seed for the dataset (0 = time based)")
	pf.String("log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")
	pf.String("log-format", "text", "log format: text or json")

	root.AddCommand(queryCmd(), replCmd(), serveCmd(), generateCmd(), simulateCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"engine.mode":       "engine",
	"dataset.size":      "size",
	"dataset.seed":      "seed",
	"log.level":         "log-level",
	"log.format":        "log-format",
	"render.format":     "format",
	"server.http":       "http",
	"server.grpc":       "grpc",
	"simulate.duration": "duration",
	"simulate.velocity": "velocity",
}

// loadConfig resolves the configuration for cmd and installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	flags := make(map[string]*pflag.Flag, len(flagKeys))
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			flags[key] = f
		}
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Init(cfg.Log), nil
}

// openPlayground loads configuration and opens a playground.
func openPlayground(ctx context.Context, cmd *cobra.Command) (*sensorsql.Playground, *config.Config, *slog.Logger, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	pg, err := sensorsql.OpenConfig(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return pg, cfg, log, nil
}
