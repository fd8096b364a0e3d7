package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"request-monitor/src/config"
	"request-monitor/src/logger"
	"request-monitor/src/storage"

	"github.com/spf13/cobra"
)

const batchSize = 5000

func main() {
	var (
		configPath string
		services   []string
		hours      int
		rate       float64
		seed       uint64
		follow     bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "fill request_log with synthetic traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Default()
			if configPath != "" {
				conf, err = config.NewConfig(configPath)
			}
			if err != nil {
				return err
			}
			appLogger := logger.NewLogger(conf.LogLevel, "Seeder")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := storage.Open(ctx, conf.MConfig, appLogger)
			if err != nil {
				return err
			}
			defer db.Close()

			gen := NewGenerator(services, rate, seed)
			now := time.Now().UTC()
			entries := gen.Range(now.Add(-time.Duration(hours)*time.Hour), now)

			for start := 0; start < len(entries); start += batchSize {
				end := min(start+batchSize, len(entries))
				if err := db.SaveRequestLogs(ctx, entries[start:end]); err != nil {
					return err
				}
			}
			appLogger.Info("Seeded %d requests for %d services over %dh", len(entries), len(services), hours)

			if !follow {
				return nil
			}

			// Keep appending one minute of traffic per minute
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			last := now
			for {
				select {
				case <-ctx.Done():
					return nil
				case t := <-ticker.C:
					t = t.UTC()
					batch := gen.Range(last, t)
					if err := db.SaveRequestLogs(ctx, batch); err != nil {
						appLogger.Warning("Insert failed: %v", err)
						continue
					}
					last = t
					appLogger.Info("Appended %d requests", len(batch))
				}
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (built-in defaults when empty)")
	cmd.Flags().StringSliceVar(&services, "services", []string{"archive", "ingest"}, "service identifiers to generate")
	cmd.Flags().IntVar(&hours, "hours", 24, "hours of history to generate")
	cmd.Flags().Float64Var(&rate, "rate", 20, "mean requests per minute per service at peak")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().BoolVar(&follow, "follow", false, "keep generating live traffic until interrupted")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
