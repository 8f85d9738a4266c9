package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pengelbrecht/ralph/internal/config"
	"github.com/pengelbrecht/ralph/internal/prd"
	"github.com/pengelbrecht/ralph/internal/update"
)

var version = "0.1.0"

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

var rootCmd = &cobra.Command{
	Use:   "ralph [description-file]",
	Short: "Autonomous AI agent loop runner",
	Long: `Ralph runs an AI coding agent in a loop against a PRD task list until every
story is complete. Given a free-form project description it asks the agent to
produce the PRD; on later runs it resumes from the existing one.`,
	Version: version,
	Args:    cobra.MaximumNArgs(1),
	// Unrecognized flags are skipped, not errors. Note pflag may still
	// absorb the token after an unknown flag as its value, so
	// "ralph --foo a.md" loses a.md as the input file.
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	Run: func(cmd *cobra.Command, args []string) {
		inputFile := ""
		if len(args) > 0 {
			inputFile = args[0]
		}
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")
		headless, _ := cmd.Flags().GetBool("headless")

		os.Exit(runLoop(inputFile, maxIterations, cmd.Flags().Changed("max-iterations"), headless))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show PRD completion statistics",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Default()
		if err != nil {
			fatal(err)
		}

		s := prd.ReadStatus(cfg.PRDFile)
		if !s.Exists {
			fmt.Println(dimStyle.Render("No PRD found. Run ralph with a description file to create one."))
			return
		}

		fmt.Printf("Project:   %s\n", s.ProjectName)
		fmt.Printf("Stories:   %d total, %d completed, %d remaining\n", s.Total, s.Completed, s.Remaining)
		if s.Incomplete {
			fmt.Println(dimStyle.Render("Run ralph to continue."))
		} else {
			fmt.Println(successStyle.Render("All stories complete."))
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the PRD file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Default()
		if err != nil {
			fatal(err)
		}

		data, err := os.ReadFile(cfg.PRDFile)
		if err != nil {
			fatal(fmt.Errorf("reading %s: %w", cfg.PRDFile, err))
		}

		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("prd.json is not valid JSON: %v", err)))
			os.Exit(1)
		}

		v := prd.Validate(value)
		if v.Valid {
			fmt.Println(successStyle.Render(v.Summary()))
			return
		}
		fmt.Println(errorStyle.Render(v.Summary()))
		os.Exit(1)
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade ralph to the latest version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Current version: %s\n", version)
		if err := update.Update(cmd.Context(), version); err != nil {
			fatal(err)
		}
		fmt.Println(successStyle.Render("Upgraded to the latest version."))
	},
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
	os.Exit(1)
}

func init() {
	log.SetReportTimestamp(false)

	rootCmd.Flags().IntP("max-iterations", "n", 10, "Maximum number of iterations")
	rootCmd.Flags().Bool("headless", false, "Plain line output, no spinner")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(upgradeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
