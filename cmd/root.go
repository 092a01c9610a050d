package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for the CLI.
const (
	// ExitCodeSuccess indicates every test passed and the report was written.
	ExitCodeSuccess = 0
	// ExitCodeError indicates failed tests or a report that could not be written.
	ExitCodeError = 1
)

// ErrTestsFailed is returned when the run completed but contained failures.
var ErrTestsFailed = errors.New("tests failed")

var opts options

// rootCmd reads engine events and writes the HTML report.
var rootCmd = &cobra.Command{
	Use:   "htmlreport",
	Short: "Turn a stream of test engine events into an HTML report",
	Long: `htmlreport reads test engine events, one JSON object per line, from stdin
or a file. It shows the progress of the run in the terminal and writes a
browsable report: a page per test class, package navigation and a run overview.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "htmlreport version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode prints err unless it only reports failed tests.
func getExitCode(err error) int {
	if !errors.Is(err, ErrTestsFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return ExitCodeError
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.infile, "file", "f", "", "Read from file instead of stdin")
	flags.StringVar(&opts.outfile, "outfile", "", "Save all input to the specified file")
	flags.StringVar(&opts.jsonfile, "jsonfile", "", "Save engine events to the specified file")
	flags.BoolVar(&opts.notty, "notty", false, "Don't use the TUI, print plain progress to stdout")
	flags.BoolVar(&opts.replay, "replay", false, "Replay events with the timing of the original run (requires -f)")
	flags.Float64Var(&opts.rate, "rate", 1.0, "Replay rate multiplier (0=instant, 1=original speed, 0.5=2x speed)")
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVarP(&opts.home, "output", "o", "", "Report directory, overrides the configuration")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Level of diagnostics logged to stderr (debug, info, warn, error)")
	flags.BoolVar(&opts.debug, "debug", false, "Log diagnostics to stderr, same as --log-level=debug")

	rootCmd.AddCommand(newVersionCmd())
}
