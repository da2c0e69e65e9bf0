package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/backend"
	"github.com/lumenstudio/fotofacil/internal/config"
	"github.com/lumenstudio/fotofacil/internal/delivery"
)

func main() {
	photoID := pflag.String("photo", "", "download only this photo id")
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 2 || len(args) > 3 {
		fmt.Println("Usage: go run cmd/fetch-order/main.go [--photo <photo-id>] <order-id> <token> [dir]")
		fmt.Println("Example: go run cmd/fetch-order/main.go 9f1c2d3e-0000-4000-8000-000000000001 abc123 ./fotos")
		os.Exit(1)
	}

	orderID := args[0]
	token := args[1]
	dir := "."
	if len(args) == 3 {
		dir = args[2]
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", dir, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gate := delivery.NewGate(
		backend.NewClient(cfg.Backend, logger),
		delivery.NewHTTPFetcher(cfg.Backend.Timeout),
		delivery.NewDirSaver(dir),
		delivery.NewLogNotifier(logger),
		cfg.Checkout.DownloadDelay,
		logger,
	)

	fmt.Printf("🔍 Opening delivery for order: %s\n\n", orderID)

	d, err := gate.Open(ctx, orderID, token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Link expirado ou inválido\n")
		os.Exit(1)
	}

	fmt.Printf("Customer: %s\n", d.Order.CustomerName)
	fmt.Printf("Photos: %d\n\n", len(d.Items))

	// Single photo
	if *photoID != "" {
		item, ok := d.Item(*photoID)
		if !ok {
			fmt.Fprintf(os.Stderr, "❌ Photo %s is not part of this order\n", *photoID)
			os.Exit(1)
		}
		path, err := gate.Download(ctx, item)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", item.PhotoID, err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s\n", path)
		return
	}

	report := gate.DownloadAll(ctx, d)

	for _, id := range report.Saved {
		fmt.Printf("✅ %s\n", id)
	}
	for _, id := range report.Failed {
		fmt.Printf("❌ %s\n", id)
	}
	fmt.Printf("\n%d of %d saved to %s\n", len(report.Saved), len(d.Items), dir)

	if len(report.Saved) < len(d.Items) {
		os.Exit(1)
	}
}
