package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the backend URL, polling, uploads and the access token.

Settings come from defaults, then the config file, then DOCCHAT_* environment
variables (also read from a .env file in the working directory).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one setting",
	Long: `Sets one setting in the config file. Run 'docchat settings keys' to list keys.
Durations accept Go syntax (1s, 500ms) or a bare number of milliseconds.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Prompts for each setting, keeping the current value on empty input.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[API]")
	cmd.Printf("  Base URL:    %s\n", settings.API.BaseURL)
	cmd.Printf("  Timeout:     %s\n", settings.API.Timeout)
	if settings.API.RateLimit > 0 {
		cmd.Printf("  Rate limit:  %g/s (burst %d)\n", settings.API.RateLimit, settings.API.Burst)
	} else {
		cmd.Println("  Rate limit:  off")
	}
	cmd.Println()

	cmd.Println("[Auth]")
	switch settings.Auth.Kind() {
	case domain.TokenSourceFile:
		cmd.Printf("  Token file:  %s\n", settings.Auth.TokenFile)
	case domain.TokenSourceStatic:
		cmd.Printf("  Token:       %s\n", maskToken(settings.Auth.Token))
	default:
		cmd.Println("  Token:       (not set)")
	}
	cmd.Println()

	cmd.Println("[Polling]")
	cmd.Printf("  Interval:     %s\n", settings.Poll.Interval)
	if settings.Poll.MaxDuration > 0 {
		cmd.Printf("  Max duration: %s\n", settings.Poll.MaxDuration)
	} else {
		cmd.Println("  Max duration: until processed")
	}
	cmd.Println()

	cmd.Println("[Upload]")
	cmd.Printf("  Concurrency: %d\n", settings.Upload.Concurrency)
	cmd.Println()

	cmd.Printf("Config file: %s\n", settingsService.ConfigPath())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if key == "auth.token" {
		value = maskToken(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("docchat Setup Wizard")
	cmd.Println("====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())
	prompts := []struct {
		key     string
		label   string
		current string
	}{
		{"api.base_url", "Backend URL", settings.API.BaseURL},
		{"api.timeout", "Request timeout", settings.API.Timeout.String()},
		{"poll.interval", "Status poll interval", settings.Poll.Interval.String()},
		{"poll.max_duration", "Stop polling after (0 = never)", settings.Poll.MaxDuration.String()},
		{"upload.concurrency", "Parallel uploads", fmt.Sprint(settings.Upload.Concurrency)},
	}

	for _, p := range prompts {
		cmd.Printf("%s [%s]: ", p.label, p.current)
		input := readReaderLine(reader)
		if input == "" {
			continue
		}
		if err := settingsService.Set(p.key, input); err != nil {
			return fmt.Errorf("failed to set %s: %w", p.key, err)
		}
	}

	cmd.Println()
	cmd.Println("Settings saved.")
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readReaderLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
