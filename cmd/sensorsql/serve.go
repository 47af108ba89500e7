package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SimonWaldherr/sensorsql/internal/render"
	"github.com/SimonWaldherr/sensorsql/internal/server"
	"github.com/SimonWaldherr/sensorsql/internal/stream"
)

func serveCmd() *cobra.Command {
	var simulate []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the playground over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pg, cfg, log, err := openPlayground(ctx, cmd)
			if err != nil {
				return err
			}
			sim := stream.NewSimulator(pg.Counters(), stream.NewSource(cfg.Dataset.Seed), cfg.Simulate.Intervals, log)
			if err := enableKinds(sim, simulate); err != nil {
				return err
			}
			sim.Start()
			defer sim.Stop()

			return server.New(pg, sim, log).Run(ctx, cfg.Server.HTTP, cfg.Server.GRPC)
		},
	}
	cmd.Flags().String("http", ":8080", "HTTP listen address (empty to disable)")
	cmd.Flags().String("grpc", ":9090", "gRPC listen address (empty to disable)")
	cmd.Flags().StringSliceVar(&simulate, "simulate", nil, "simulations to start: structured, logs, json, bigdata, stream or all")
	return cmd
}

func simulateCmd() *cobra.Command {
	var (
		kinds []string
		batch bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the data simulations and print the 4Vs summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pg, cfg, log, err := openPlayground(ctx, cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sim := stream.NewSimulator(pg.Counters(), stream.NewSource(cfg.Dataset.Seed), cfg.Simulate.Intervals, log)
			if len(kinds) == 0 {
				kinds = []string{"all"}
			}
			if err := enableKinds(sim, kinds); err != nil {
				return err
			}

			start := time.Now()
			sim.Start()
			if batch {
				sim.Batch.Generate()
				fmt.Fprintf(out, "Queued %d items for batch processing\n", sim.Batch.Pending())
				if _, err := sim.Batch.Process(ctx, 20*time.Millisecond, func(done, total int) {
					if done%10 == 0 || done == total {
						fmt.Fprintf(out, "Batch progress: %d/%d\n", done, total)
					}
				}); err != nil && ctx.Err() == nil {
					return err
				}
			}

			wait := time.NewTimer(cfg.Simulate.Duration)
			select {
			case <-ctx.Done():
				wait.Stop()
			case <-wait.C:
			}
			snap := pg.Counters().Snapshot()
			sim.Stop()

			for _, r := range sim.Structured.Items() {
				fmt.Fprintf(out, "%s  %-8s  %5s°C  %5s%%  %s\n", r.Timestamp, r.DeviceID, r.Temperature, r.Humidity, r.Status)
			}
			for _, l := range sim.Logs.Items() {
				fmt.Fprintln(out, l.String())
			}
			if docs := sim.Documents.Items(); len(docs) > 0 {
				fmt.Fprintln(out, docs[0].Raw)
			}
			fmt.Fprintln(out)
			return render.WriteSnapshot(out, snap, time.Since(start))
		},
	}
	cmd.Flags().Duration("duration", 10*time.Second, "how long to run")
	cmd.Flags().Int64("velocity", 10, "records per second for the volume simulation")
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "simulations to run: structured, logs, json, bigdata, stream or all (default all)")
	cmd.Flags().BoolVar(&batch, "batch", false, "also queue and process one batch")
	return cmd
}

func enableKinds(sim *stream.Simulator, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "all" {
			for _, k := range stream.Kinds {
				if err := sim.Enable(k); err != nil {
					return err
				}
			}
			continue
		}
		k, err := stream.ParseKind(name)
		if err != nil {
			return err
		}
		if err := sim.Enable(k); err != nil {
			return err
		}
	}
	return nil
}
