package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bosunhq/bosun/pkg/api"
	"github.com/bosunhq/bosun/pkg/config"
	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/log"
	"github.com/bosunhq/bosun/pkg/orchestrator"
	"github.com/bosunhq/bosun/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bosun",
	Short: "Bosun - fleet maintenance scheduler for industrial assets",
	Long: `Bosun continuously turns a catalog of maintenance work orders and a
pool of workers into a coherent four-level schedule: two-week periods,
tactical days, supervisor delegations and minute-accurate worker
timelines.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Bosun version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Setup(config.LoggingConfig{Level: logLevel, JSON: logJSON})
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduler daemon",
	Long: `Start the bosun daemon: ingest the environment, spawn the per-asset
actor sets and serve the HTTP API until interrupted.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().String("environment", "", "Path to the environment ingest file (required)")
	daemonCmd.Flags().Bool("ephemeral", false, "Run without persisting snapshots")
	_ = daemonCmd.MarkFlagRequired("environment")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	envPath, _ := cmd.Flags().GetString("environment")
	env, err := environment.LoadFile(envPath)
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	var persist storage.Store
	if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); !ephemeral {
		store, err := storage.NewBoltStore(cfg.Scheduler.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer store.Close()
		persist = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.New(cfg, env, persist)
	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	group, ctx := errgroup.WithContext(ctx)
	server := api.NewServer(orch)
	group.Go(func() error {
		return server.Start(ctx, cfg.API.Addr)
	})

	daemonLog := log.WithComponent("daemon")
	daemonLog.Info().Msg("Bosun daemon running")
	return group.Wait()
}

var statusCmd = &cobra.Command{
	Use:   "status [asset]",
	Short: "Show scheduler status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("addr", "http://localhost:8321", "Daemon address")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	client := &http.Client{Timeout: 10 * time.Second}

	if len(args) == 0 {
		return printJSON(client, addr+"/v1/assets")
	}

	asset := args[0]
	for _, path := range []string{
		"/v1/assets/" + asset + "/strategic/status",
		"/v1/assets/" + asset + "/tactical/status",
		"/v1/assets/" + asset + "/operational/status",
	} {
		if err := printJSON(client, addr+path); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
