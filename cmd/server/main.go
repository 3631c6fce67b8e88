package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/gatedev/internal/infrastructure/config"
	"github.com/GriffinCanCode/gatedev/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "HTTP port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "HTTP host")
	flag.StringVar(&cfg.RPC.Address, "rpc", cfg.RPC.Address, "gRPC listen address")
	flag.BoolVar(&cfg.RPC.Enabled, "rpc-enabled", cfg.RPC.Enabled, "Serve the gRPC API")
	flag.StringVar(&cfg.Device.Name, "name", cfg.Device.Name, "Device name")
	flag.IntVar(&cfg.Device.Capacity, "capacity", cfg.Device.Capacity, "Shared buffer capacity in bytes")
	flag.StringVar(&cfg.Device.Table, "table", cfg.Device.Table, "Device table file (.yaml, .yml or .toml)")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")
	flag.Parse()

	if cfg.Logging.Development && !isFlagSet("log-level") {
		cfg.Logging.Level = "debug"
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		srv.Close()
		log.Fatalf("Server error: %v", err)
	}
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
