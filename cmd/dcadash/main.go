// DCA Dashboard — retail commodity prices and rainfall for India
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/a0pawar/DCA-dashboard/api"
	"github.com/a0pawar/DCA-dashboard/internal/config"
	"github.com/a0pawar/DCA-dashboard/internal/pricing"
	"github.com/a0pawar/DCA-dashboard/internal/recorder"
	"github.com/a0pawar/DCA-dashboard/internal/scheduler"
	"github.com/a0pawar/DCA-dashboard/internal/service"
	"github.com/a0pawar/DCA-dashboard/pkg/models"
	"github.com/a0pawar/DCA-dashboard/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dcadash",
	Short: "DCA Dashboard — retail commodity prices and rainfall for India",
	Long: `DCA Dashboard backend
Loads the Department of Consumer Affairs price workbook into a weekly
commodity series, scrapes IMD state-wise rainfall deviation, and serves
both over an HTTP API for the charting frontend.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(momentumCmd)
	rootCmd.AddCommand(rainfallCmd)
	rootCmd.AddCommand(statusCmd)
}

// newService builds the service stack from the loaded config.
func newService() (*service.Service, error) {
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Recorder.Driver == "sqlite" {
		var err error
		rec, err = recorder.NewSQLiteRecorder(cfg.Recorder.Path)
		if err != nil {
			return nil, fmt.Errorf("open recorder: %w", err)
		}
	}
	return service.New(cfg, rec), nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dcadash %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		srv := api.NewServer(cfg, svc, version)

		if cfg.Refresh.Enabled {
			sched := scheduler.NewScheduler(context.Background(), svc, srv.Hub())
			if err := sched.Register(cfg.Refresh.Cron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting DCA dashboard API on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Load Command ---

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the price workbook and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		series, err := svc.Prices()
		if err != nil {
			return err
		}

		min, max, _ := series.Bounds()
		fmt.Printf("📒 %s\n", cfg.Workbook.Path)
		fmt.Printf("   Points:      %d\n", len(series))
		fmt.Printf("   Commodities: %d\n", len(series.CommodityNames()))
		fmt.Printf("   Window:      %s .. %s\n", utils.FormatDate(min), utils.FormatDate(max))
		return nil
	},
}

// --- Momentum Command ---

var momentumCmd = &cobra.Command{
	Use:   "momentum [commodities]",
	Short: "Print the week-over-week momentum table",
	Long: `Print the last four weekly percentage changes per commodity.
Pass a comma-separated commodity list, or nothing for all 22.

Examples:
  dcadash momentum
  dcadash momentum Rice,Onion,Tomato`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		series, err := svc.Prices()
		if err != nil {
			return err
		}

		selected := models.Commodities
		if len(args) == 1 {
			selected = nil
			for _, name := range strings.Split(args[0], ",") {
				if name = strings.TrimSpace(name); name != "" {
					selected = append(selected, name)
				}
			}
		}

		filtered := pricing.Filter(series, selected, pricing.DefaultWindow(series))
		table := pricing.Momentum(filtered)

		fmt.Printf("%-16s %10s %10s %10s %10s\n", "Commodity",
			table.HeaderDates[0], table.HeaderDates[1], table.HeaderDates[2], table.HeaderDates[3])
		for _, row := range table.Rows {
			fmt.Printf("%-16s %10s %10s %10s %10s\n", row.Commodity,
				fmtPct(row.ThreeWeeksAgo), fmtPct(row.TwoWeeksAgo),
				fmtPct(row.PreviousWeek), fmtPct(row.LatestWeek))
		}
		return nil
	},
}

func fmtPct(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

// --- Rainfall Command ---

var rainfallCmd = &cobra.Command{
	Use:   "rainfall [period]",
	Short: "Scrape and print state-wise rainfall deviation",
	Long:  "Period is one of: daily, weekly, monthly, cumulative (default weekly).",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period := models.PeriodWeekly
		if len(args) == 1 {
			var err error
			period, err = models.ParsePeriod(args[0])
			if err != nil {
				return err
			}
		}

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		records, err := svc.Rainfall(cmd.Context(), period)
		if err != nil {
			return err
		}

		fmt.Printf("🌧  Rainfall (%s) — %d states\n", period, len(records))
		fmt.Printf("%-28s %10s %10s %10s\n", "State", "Actual", "Normal", "Departure")
		for _, r := range records {
			fmt.Printf("%-28s %10s %10s %10s\n", r.State,
				fmtMM(r.ActualMM), fmtMM(r.NormalMM), fmtDep(r.DeviationPct))
		}
		return nil
	},
}

func fmtMM(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f mm", *v)
}

func fmtDep(v *int) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%+d%%", *v)
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  DCA Dashboard — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Printf("  Time (IST):  %s\n", utils.FormatDateTimeIST(utils.NowIST()))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Workbook:    %s (sheet %s)\n", cfg.Workbook.Path, cfg.Workbook.Sheet)
		fmt.Printf("    Rainfall:    %s\n", cfg.Rainfall.URL)
		fmt.Printf("    Cache TTL:   %ds\n", cfg.Cache.TTLSec)
		fmt.Printf("    API Server:  %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Recorder:    %s\n", cfg.Recorder.Driver)
		if cfg.Refresh.Enabled {
			fmt.Printf("    Refresh:     %q\n", cfg.Refresh.Cron)
		} else {
			fmt.Println("    Refresh:     disabled")
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
