package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shared-menu/internal/app"
	"shared-menu/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		log.Fatal(err)
	}
}

// run executes one command. Returning instead of exiting lets the deferred
// cleanups close the database and the broker.
func run(command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		application, err := app.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		if err := application.Serve(ctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		log.Println("Server exiting")
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		_ = cleanupCmd.Parse(args)

		application, err := app.NewOffline(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		affected, err := application.CleanupMetrics(*days)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	case "metrics-report":
		reportCmd := flag.NewFlagSet("metrics-report", flag.ExitOnError)
		days := reportCmd.Int("days", 7, "Report the last N days")
		_ = reportCmd.Parse(args)

		application, err := app.NewOffline(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		if err := application.ReportUsage(*days, os.Stdout); err != nil {
			return fmt.Errorf("report failed: %w", err)
		}
	case "shopping-list":
		if len(args) == 0 {
			return fmt.Errorf("usage: shared-menu shopping-list <dish-id>...")
		}

		application, err := app.NewOffline(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer application.Close()

		id, list, err := application.ShoppingList(ctx, args)
		if err != nil {
			return fmt.Errorf("lookup failed: %w", err)
		}
		fmt.Println(id)
		if list == nil {
			fmt.Println("No shopping list stored for these dishes.")
			return nil
		}
		for _, line := range list.Content.Lines() {
			fmt.Println(line)
		}
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: shared-menu <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve              Run the HTTP API and live wish panels")
	fmt.Println("  metrics-cleanup    Remove old metric records (-days N)")
	fmt.Println("  metrics-report     Report token usage, to Telegram when configured (-days N)")
	fmt.Println("  shopping-list      Print the list id and stored list of a set of dish ids")
}
