package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/logger"
	"github.com/iudanet/gophsync/internal/server"
	"github.com/iudanet/gophsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	configFile := flag.String("config", "", "Path to config file (yaml, toml or json)")
	address := flag.String("address", "", "Listen address, overrides server.address")
	dbPath := flag.String("db", "", "Path to coordinator database, overrides server.db_path")
	logLevel := flag.String("log-level", "", "Log level, overrides log.level")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	vip := viper.New()
	overrides := map[string]string{
		"server.address": *address,
		"server.db_path": *dbPath,
		"log.level":      *logLevel,
	}
	for key, value := range overrides {
		if value != "" {
			vip.Set(key, value)
		}
	}

	if err := run(*configFile, vip); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, vip *viper.Viper) (err error) {
	cfg, err := config.Load(configFile, vip)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, closer, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closer.Close())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	schema, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	log.Info("GophSync coordinator starting",
		"version", Version,
		"address", cfg.Server.Address,
		"db_path", cfg.Server.DBPath,
		"schema_version", schema)

	return server.New(cfg.Server, store, Version, log).Run(ctx)
}

func printVersion() {
	fmt.Printf("GophSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
