package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Balram04/assigno/internal/config"
	"github.com/Balram04/assigno/internal/session"
	"github.com/Balram04/assigno/internal/storage"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `Manage CLI configuration settings like the API server and where the session is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverFlag, _ := cmd.Flags().GetString("server")
		if serverFlag != "" {
			return setServerConfig(cmd, serverFlag)
		}
		return cmd.Help()
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration after the config file, the .env file and
ASSIGNO_* environment variables have been applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cliConfig
		printResult(cmd, cfg, func(w io.Writer) {
			fmt.Fprintf(w, "Config file:     %s\n", configFile)
			fmt.Fprintf(w, "Server:          %s\n", cfg.ServerURL)
			fmt.Fprintf(w, "Request timeout: %s\n", cfg.RequestTimeout)
			fmt.Fprintf(w, "Verify timeout:  %s\n", cfg.VerifyTimeout)
			fmt.Fprintf(w, "Poll interval:   %s\n", cfg.PollInterval)
			fmt.Fprintf(w, "Session storage: %s\n", storageDescription(cfg))
		})
		return nil
	},
}

// configClearCmd represents the config clear command
var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the stored session",
	Long: `Clear the stored session. This removes the persisted credential and user without
contacting the server, which is useful when the session storage holds stale data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := storage.New(cliConfig.StorageOptions())
		if err != nil {
			return fmt.Errorf("failed to open session storage: %w", err)
		}
		defer kv.Close()

		if err := kv.Delete(session.KeyToken, session.KeyUser); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}

		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string]int{"result": 1})
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), `Session cleared. Sign in again with "assigno login".`)
		}
		return nil
	},
}

func init() {
	configCmd.Flags().String("server", "", "Set the API server URL (e.g., lms.example.edu/api)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configClearCmd)
	rootCmd.AddCommand(configCmd)
}

// setServerConfig points the configuration at server. Other settings in the file are kept.
// The stored session belongs to the previous server and is dropped.
func setServerConfig(cmd *cobra.Command, server string) error {
	cfg := cliConfig
	cfg.Version = config.ConfigFormatVersion
	cfg.ServerURL = config.MorphServer(server)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Write(configFile); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if kv, err := storage.New(cfg.StorageOptions()); err == nil {
		_ = kv.Delete(session.KeyToken, session.KeyUser)
		kv.Close()
	}

	if jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]string{
			"server":      cfg.ServerURL,
			"config_file": configFile,
		})
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Server configured: %s\n", cfg.ServerURL)
		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", configFile)
	}
	return nil
}

func storageDescription(cfg *config.Config) string {
	opts := cfg.StorageOptions()
	switch opts.Kind {
	case storage.KindRedis:
		return "redis " + opts.Redis.Addr
	case storage.KindMemory:
		return "memory (not persisted)"
	default:
		return "file " + opts.FilePath
	}
}
