/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server (payrolld), and offers a
  small offline command for previewing payment weeks.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  payrolld serve   Run the HTTP API
  payrolld week    Print the payment week a date falls into

STARTUP SEQUENCE (serve):
  1. Load config (TOML file, .env, environment), then apply flags
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start the repricing scheduler
  6. Start server with graceful shutdown

FLAGS (serve):
  --config            TOML config path (default: payrolld.toml, optional)
  --port              HTTP server port (overrides config)
  --db                SQLite database path (overrides config)
                      Use ":memory:" for in-memory database
  --reprice-interval  Open-week repricing interval, 0 disables (default: 1h)

FLAGS (week):
  --date              Date to resolve, YYYY-MM-DD (default: today)
  --start-day         Week start day, 0 = Sunday ... 6 = Saturday (default: 1)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (server.shutdown_timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  payrolld serve --db=./data/payroll.db

  # Run with in-memory database on another port
  payrolld serve --db=":memory:" --port=3000

  # Which week is New Year's Eve in, for Sunday-start workers?
  payrolld week --date=2025-12-31 --start-day=0

ENVIRONMENT:
  PAYROLL_PORT, PAYROLL_DB, PAYROLL_DEFAULT_RATE, PAYROLL_WEEK_START_DAY,
  PAYROLL_CORS_ORIGINS. See config/config.go.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Em4Michael/AirHub-Server/api"
	"github.com/Em4Michael/AirHub-Server/config"
	"github.com/Em4Michael/AirHub-Server/generic"
	"github.com/Em4Michael/AirHub-Server/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "payrolld",
	Short: "Weekly payroll engine for time-and-quality workers",
	Long: `payrolld turns vetted daily time and quality entries into weekly
payment records, prices them against the active benchmark, and manages
pending bonuses until they are paid out.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(weekCmd)

	serveCmd.Flags().String("config", "payrolld.toml", "TOML config path")
	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides config)")
	serveCmd.Flags().String("db", "", "SQLite database path (overrides config)")
	serveCmd.Flags().Duration("reprice-interval", time.Hour, "Open-week repricing interval, 0 disables")

	weekCmd.Flags().String("date", "", "Date to resolve, YYYY-MM-DD (default: today)")
	weekCmd.Flags().Int("start-day", 1, "Week start day, 0 = Sunday ... 6 = Saturday")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("db") {
		cfg.Database.Path, _ = cmd.Flags().GetString("db")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	rate, _ := cfg.DefaultHourlyRate()
	shutdownTimeout, _ := cfg.ShutdownTimeout()
	repriceInterval, _ := cmd.Flags().GetDuration("reprice-interval")

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, api.Options{
		DefaultHourlyRate: rate,
		WeekStartDay:      cfg.Payroll.WeekStartDay,
	})

	// Background repricing of open weeks
	scheduler := api.NewRepricingScheduler(handler)
	scheduler.CheckInterval = repriceInterval
	scheduler.Enabled = repriceInterval > 0
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.CORS.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s (db=%s, default rate=%s)", cfg.Addr(), cfg.Database.Path, rate)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("[Server] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("[Server] Stopped")
	return nil
}

// ─── week ───────────────────────────────────────────────────────────────────

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Print the payment week a date falls into",
	RunE:  runWeek,
}

func runWeek(cmd *cobra.Command, _ []string) error {
	dateStr, _ := cmd.Flags().GetString("date")
	startDay, _ := cmd.Flags().GetInt("start-day")

	if err := generic.ValidateWeekStartDay(startDay); err != nil {
		return err
	}
	date := generic.Today()
	if dateStr != "" {
		d, err := generic.ParseDate(dateStr)
		if err != nil {
			return fmt.Errorf("invalid --date %q (use YYYY-MM-DD)", dateStr)
		}
		date = d
	}

	week := generic.ResolveWeek(date, startDay)
	fmt.Fprintf(cmd.OutOrStdout(), "week:   %d-W%02d\n", week.Year, week.Number)
	fmt.Fprintf(cmd.OutOrStdout(), "start:  %s (%s)\n", week.Start.Format(generic.DateLayout), week.Start.Weekday())
	fmt.Fprintf(cmd.OutOrStdout(), "end:    %s (%s)\n", week.End.Format(generic.DateLayout), week.End.Weekday())
	return nil
}
