package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/homeclock/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or validate homeclock configuration",
	Long: `View or validate homeclock configuration.

Without arguments, displays the effective configuration.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and report every problem",
	RunE:  runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/homeclock/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(out, "Configuration is invalid, showing defaults:\n%v\n\n", err)
		cfg = config.Default()
	}

	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", used)
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n\n")
	}

	fmt.Fprintln(out, "clock:")
	fmt.Fprintf(out, "  refresh_count: %d\n", cfg.Clock.RefreshCount)
	fmt.Fprintf(out, "  force_timeout_ms: %d\n", cfg.Clock.ForceTimeoutMs)
	fmt.Fprintf(out, "  retry_count: %d\n", cfg.Clock.RetryCount)
	fmt.Fprintf(out, "  update_period_ms: %d\n", cfg.Clock.UpdatePeriodMs)
	fmt.Fprintf(out, "  first_instance_debounce_ms: %d\n", cfg.Clock.FirstInstanceDebounceMs)
	fmt.Fprintf(out, "  default_package: %s\n", cfg.Clock.DefaultPackage)

	fmt.Fprintln(out, "provider:")
	fmt.Fprintf(out, "  registry_file: %s\n", cfg.Provider.RegistryFile)
	fmt.Fprintf(out, "  watch_registry: %v\n", cfg.Provider.WatchRegistry)
	fmt.Fprintf(out, "  launch_command: [%s]\n", strings.Join(cfg.Provider.LaunchCommand, ", "))
	fmt.Fprintf(out, "  create_latency_ms: %d\n", cfg.Provider.CreateLatencyMs)
	fmt.Fprintln(out, "  families:")
	for _, f := range cfg.Provider.Families {
		fmt.Fprintf(out, "    - pattern: %q\n      family: %s\n", f.Pattern, f.Family)
	}

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.Dir)

	fmt.Fprintln(out, "metrics:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Metrics.Enabled)
	fmt.Fprintf(out, "  listen_addr: %s\n", cfg.Metrics.ListenAddr)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintln(out, used)
		return nil
	}
	fmt.Fprintln(out, config.ConfigFile())
	return nil
}

const defaultConfigFile = `# Homeclock Configuration

clock:
  # Content updates a pending instance needs before it is shown
  refresh_count: 5
  # Show a pending instance anyway after this long
  force_timeout_ms: 2500
  # Reactivations of a faulted provider before giving up
  retry_count: 3
  # Provider update period handed to new instances (0 = provider default)
  update_period_ms: 0
  # Minimum gap between discarding and rebuilding the first instance
  first_instance_debounce_ms: 1000
  # Package whose instance is pre-created at boot
  default_package: ""

provider:
  # YAML file mapping packages to provider ids
  registry_file: ""
  # Reload the registry when the file changes
  watch_registry: true
  # Command used to start real providers; empty uses the simulator
  launch_command: []
  # Package patterns routed to clock families
  families:
    - pattern: "*"
      family: dbox
  # Simulated provider creation latency
  create_latency_ms: 200

logging:
  # debug, info, warn or error
  level: info
  # Log directory; empty logs to stderr
  dir: ""

metrics:
  enabled: true
  # Address for the Prometheus endpoint, e.g. ":9090"; empty disables it
  listen_addr: ""
`
