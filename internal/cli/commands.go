package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/common/httpclient"
	"github.com/Balram04/assigno/internal/common/logtrace"
	"github.com/Balram04/assigno/internal/config"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
	dotEnvFile string
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var warnLabel = color.New(color.FgYellow)

// cliConfig is the configuration loaded by the persistent pre-run.
var cliConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assigno [command] [flags]",
	Short: "Assigno CLI - A command line client for the Assigno learning platform",
	Long: `Assigno CLI is a command line client for the Assigno learning platform.
It signs you in, keeps your session between invocations and gives students and staff
access to courses, assignments, submissions and study groups.

Examples:
  # Point the CLI at a server
  assigno config --server lms.example.edu/api

  # Sign in
  assigno login --email asha@example.edu --password s3cret1

  # List your courses
  assigno courses list

  # Follow a group chat
  assigno groups watch 64f1c2`,
	PersistentPreRunE: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().StringVarP(&dotEnvFile, "env-file", "", config.DefaultDotEnv, "Path to a .env file with ASSIGNO_* overrides")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(newVersionCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		reportError(rootCmd.ErrOrStderr(), rootCmd.OutOrStdout(), err)
		os.Exit(1)
	}
}

func reportError(stderr, stdout io.Writer, err error) {
	if httpclient.IsCredentialRejected(err) {
		err = ErrSessionEnded
	}
	if jsonOutput {
		printJSON(stdout, map[string]string{"error": err.Error()})
		return
	}
	errorLabel.Fprintf(stderr, "Error: %v\n", err)
}

// preRunHandlePersistents loads the configuration and sets up logging before any command runs.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		var err error
		configFile, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(configFile, dotEnvFile)
	if err != nil {
		if isConfigCommand(cmd) {
			// config --server must be able to repair a broken file
			cfg = config.Default()
		} else {
			return fmt.Errorf("unable to load configuration: %w", err)
		}
	}
	cliConfig = cfg
	logtrace.InitLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" || c.Name() == "version" {
			return true
		}
	}
	return false
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of assigno",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"version":     getCLIVersion(),
					"config_file": configFile,
				})
				return
			}
			cmd.Printf("assigno CLI %s\n", getCLIVersion())
			cmd.Printf("Config file: %s\n", configFile)
		},
	}
}

// printJSON prints data as indented JSON.
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}

// printResult prints value under the {"result":1,"value":...} envelope in JSON mode, and
// runs human otherwise.
func printResult(cmd *cobra.Command, value any, human func(w io.Writer)) {
	if jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]any{"result": 1, "value": value})
		return
	}
	human(cmd.OutOrStdout())
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.1.0"
}
