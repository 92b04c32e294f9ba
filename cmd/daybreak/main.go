// Daybreak: daily pre-market report of global index closes.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/common"
	"github.com/seenimoa/daybreak/internal/config"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set in PersistentPreRunE.
var (
	cfg    *config.Config
	logger arbor.ILogger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "daybreak",
	Short: "Daybreak: daily pre-market report",
	Long: `Daybreak fetches end-of-day closes for a fixed set of index ETFs,
adds an AI-written morning brief and renders the report as Markdown and PDF.

Closes are cached per symbol and trading day, so re-running a report never
calls the data provider twice for the same close.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
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
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = common.NewLogger(common.LogOptions{
			Level:   cfg.Logging.Level,
			Outputs: cfg.Logging.Outputs,
			File:    cfg.Logging.File,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		common.PrintBanner(version)
		fmt.Printf("Daybreak %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show market status, resolved trading day and API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cal, err := cfg.NewCalendar()
		if err != nil {
			return err
		}
		now := time.Now().In(cal.Location())

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Daybreak — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", cal.Status(now))
		fmt.Printf("  Time (ET):     %s\n", now.Format("2006-01-02 15:04:05 MST"))
		if day, err := cal.Resolve(now); err == nil {
			fmt.Printf("  Report Closes: %s\n", day)
		} else {
			fmt.Printf("  Report Closes: unresolved (%v)\n", err)
		}
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Indices:       %d\n", len(cfg.Indices))
		fmt.Printf("    Cache:         %s\n", cfg.Cache.Backend)
		fmt.Printf("    Pacing:        %s\n", cfg.MarketData.PacingInterval)
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, displayModel(cfg.LLM.Model))
		fmt.Printf("    PDF Engine:    %s\n", cfg.Report.PDFEngine)
		fmt.Printf("    Email:         %t\n", cfg.Email.Enabled)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			} else if !k.Required {
				status = "– not set (optional)"
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func displayModel(m string) string {
	if m == "" {
		return "default"
	}
	return m
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
