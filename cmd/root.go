package cmd

import (
	"errors"
	"os"

	"todoperf/internal/config"
	"todoperf/internal/instance"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (sweep failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeStartupFailure indicates the Todo Manager server never became ready.
	ExitCodeStartupFailure = 2
)

// rootCmd represents the base command for the todoperf application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "todoperf",
	Short: "Measure the performance of the Todo Manager REST API",
	Long: `todoperf is a black-box performance harness for the Todo Manager REST API.

It starts (or attaches to) the server, sweeps growing data-set sizes for todos,
projects and categories, and measures latency, CPU and memory around single
create, update and delete calls. Raw samples are exported as JSON.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "todoperf version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var startupErr *instance.StartupError
	if errors.As(err, &startupErr) {
		return ExitCodeStartupFailure
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newConfigCmd())

	rootCmd.PersistentFlags().String("config", "", "Path to the harness configuration file (default: built-in defaults)")
}

// configPath returns the --config flag value.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

// kindFlags maps selection flags to entity kinds, in sweep order.
var kindFlags = []struct {
	flag string
	kind string
}{
	{"todos", config.KindTodos},
	{"projects", config.KindProjects},
	{"categories", config.KindCategories},
}
