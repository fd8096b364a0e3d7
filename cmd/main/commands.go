package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"request-monitor/src/config"
	"request-monitor/src/dashboard"
	"request-monitor/src/grpc_control"
	"request-monitor/src/helpers"
	"request-monitor/src/utils"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

// Serve runs the dashboard HTTP server, the gRPC health server, live refresh
// and the daily retention cleanup until interrupted.
func Serve() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			appLogger := setupLogger(conf)

			if limit := helpers.ApplyMemoryLimit(conf.MemoryLimitMB); limit > 0 {
				appLogger.Info("Memory limit set to %d MB", limit)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := setupDatabase(ctx, conf.MConfig, appLogger)
			if err != nil {
				return err
			}
			defer db.Close()

			history := utils.NewRenderHistory(utils.DefaultHistoryCapacity)
			facade := dashboard.NewDashboardFacade(conf.MConfig, db, history, appLogger.Named("Dashboard"))

			return runServers(ctx, conf, db, facade, history, appLogger)
		},
	}
}

// -----------------------------------------------------------------------------

// Render prints one page payload as JSON, the way the chart widget receives it.
func Render() *cobra.Command {
	var service string
	var hours int

	cmd := &cobra.Command{
		Use:   "render <page>",
		Short: "render a page once and print its JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			appLogger := setupLogger(conf)

			db, err := setupDatabase(cmd.Context(), conf.MConfig, appLogger)
			if err != nil {
				return err
			}
			defer db.Close()

			facade := dashboard.NewDashboardFacade(conf.MConfig, db, nil, appLogger.Named("Dashboard"))
			payload, err := facade.RenderPage(cmd.Context(), args[0], service, hours)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		},
	}
	cmd.Flags().StringVarP(&service, "service", "s", "", "service identifier")
	cmd.Flags().IntVar(&hours, "hours", 0, "reporting window in hours (config default when 0)")
	cmd.MarkFlagRequired("service")
	return cmd
}

// -----------------------------------------------------------------------------

// Config groups configuration helpers.
func Config() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "configuration helpers",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "write the built-in configuration to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			conf, err := config.Default()
			if err != nil {
				return err
			}
			if err := conf.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d pages, %s storage\n", len(conf.Pages), conf.Storage.DBType)
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}

// -----------------------------------------------------------------------------

// Health queries the gRPC health service of a running server.
func Health() *cobra.Command {
	var addr, service string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "query the gRPC health status of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				conf, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if conf.GrpcPort == 0 {
					return fmt.Errorf("gRPC is disabled in the configuration, pass --addr")
				}
				addr = fmt.Sprintf("%s:%d", conf.GrpcHost, conf.GrpcPort)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out, err := grpc_control.Probe(ctx, addr, service)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (from config when empty)")
	cmd.Flags().StringVar(&service, "service", grpc_control.ServiceName, "health service name, empty for overall")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

// -----------------------------------------------------------------------------

func Version(hash, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version of request-monitor",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hash=%s\nversion=%s\n", hash, version)
		},
	}
}
