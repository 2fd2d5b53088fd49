package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/spf13/cobra"

	"github.com/cuemby/holt/pkg/api"
	"github.com/cuemby/holt/pkg/auth"
	"github.com/cuemby/holt/pkg/broker"
	"github.com/cuemby/holt/pkg/config"
	"github.com/cuemby/holt/pkg/index"
	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/metrics"
	"github.com/cuemby/holt/pkg/s3"
	"github.com/cuemby/holt/pkg/security"
	"github.com/cuemby/holt/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Holt broker server",
	Long: `Run the broker: the HTTP API, the credential vault, and the search
index coordinator. Configuration comes from an optional YAML file,
wio_-prefixed environment variables, and the flags below, in that
order of precedence.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML config file")
	serveCmd.Flags().String("listen", "", "HTTP bind address (overrides config)")
	serveCmd.Flags().String("data-dir", "", "Directory for the embedded database (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DatabaseURI = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})

	fmt.Println("Starting Holt broker...")
	fmt.Printf("  Listen Address: %s\n", cfg.Listen)
	fmt.Printf("  Public Address: %s\n", cfg.PublicName)
	fmt.Printf("  Data Directory: %s\n", cfg.DatabaseURI)
	fmt.Println()

	// Open database
	store, err := storage.NewBoltStore(cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	fmt.Println("✓ Database opened")

	vault, err := security.NewVaultFromSecret(cfg.Secret)
	if err != nil {
		return fmt.Errorf("failed to derive sealing key: %v", err)
	}
	brk := broker.New(store, s3.NewClientCache(), vault)

	// Search engine is optional; without it indexing endpoints answer 501.
	var es *elasticsearch.Client
	if len(cfg.ESNodes) > 0 {
		es, err = elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.ESNodes})
		if err != nil {
			return fmt.Errorf("failed to create search client: %v", err)
		}
		fmt.Printf("✓ Search engine configured (%d nodes)\n", len(cfg.ESNodes))
	} else {
		fmt.Println("  Search engine not configured, indexing disabled")
	}
	indexer := index.New(store, es)

	authn := auth.NewAuthenticator(store, cfg.Secret)
	oidc := auth.NewOIDCProvider(cfg.OIDC)
	if cfg.OIDC.Enabled() {
		fmt.Println("✓ Browser login enabled")
	}

	// Start metrics collector
	collector := metrics.NewCollector(store)
	collector.Start()

	// Start API server in background
	server := api.NewServer(cfg, store, brk, indexer, authn, oidc, Version)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Listen); err != nil {
			errCh <- fmt.Errorf("API server error: %v", err)
		}
	}()

	fmt.Println()
	fmt.Printf("Holt is running on %s. Press Ctrl+C to stop.\n", cfg.Listen)

	// Wait for interrupt signal or API server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	// Shutdown
	server.Stop()
	collector.Stop()
	if err := store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %v", err)
	}

	fmt.Println("✓ Shutdown complete")
	return nil
}
