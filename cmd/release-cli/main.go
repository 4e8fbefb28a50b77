package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kination/bundlepub/internal/console"
)

// Process exit codes.
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

const cliVersion = "0.1.0"

var (
	rootDir    string
	configPath string
	reportPath string
	dryRun     bool
	softFail   bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "release-cli",
	Short: "Build, stage and publish the library packages",
	Long: `release-cli builds every package of the library with the bundler,
stages it next to its manifest, minifies it and, outside pull request
builds, logs into the registry and publishes the staged packages.

Running without a subcommand is the same as "release-cli run".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRun:  func(cmd *cobra.Command, args []string) { setupLogging(verbose) },
	RunE:              func(cmd *cobra.Command, args []string) error { return runRelease(cmd, dryRun) },
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full release pipeline",
	Long: `Run the release pipeline. For each package in order:
  1. Clean the output and staging directories
  2. Bundle the entry point
  3. Stage the bundle and package.json
  4. Minify the bundle into the staging directory
  5. Stamp the release version (publishing runs only)
Then log into the registry and publish every staged package.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd, dryRun)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the commands a run would execute without running them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd, true)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log into the registry with NPM_USERNAME, NPM_PASSWORD and NPM_EMAIL",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogin(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of release-cli",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "release-cli v%s\n", cliVersion)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootDir, "root", "r", ".", "Project root directory")
	flags.StringVarP(&configPath, "config", "c", "", "Path to the release configuration (default <root>/release.yaml if present)")
	flags.StringVar(&reportPath, "report", "", "Write a YAML run report to this path")
	flags.BoolVar(&dryRun, "dry-run", false, "Record commands instead of running them and skip login")
	flags.BoolVar(&softFail, "soft-fail", false, "Log a failed run and exit 0")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	os.Exit(execute(rootCmd, console.Stdio()))
}

func execute(cmd *cobra.Command, out *console.Console) int {
	if err := cmd.Execute(); err != nil {
		out.Errorf("❌ Error: %v", err)
		var cfgErr *configError
		if errors.As(err, &cfgErr) {
			return ExitConfigError
		}
		return ExitFailure
	}
	return ExitSuccess
}
