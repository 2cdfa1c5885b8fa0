// Package cli provides the cobra command tree for docchat.
package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Options carry the global flags to the bootstrap function.
type Options struct {
	// ConfigDir overrides the config directory (default ~/.docchat).
	ConfigDir string

	// APIURL overrides the backend base URL for this run.
	APIURL string

	// Verbose enables debug logging.
	Verbose bool
}

// Services are the core services the commands drive.
type Services struct {
	Chat      driving.ChatService
	Documents driving.DocumentService
	Settings  driving.SettingsService
	Auth      driving.AuthService

	// Notifier receives service notifications. The tui command redirects it.
	Notifier *Notifier

	// Shutdown releases background work (pollers, watchers). May be nil.
	Shutdown func()
}

// Bootstrap assembles the services once flags are parsed.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var (
	chatService     driving.ChatService
	documentService driving.DocumentService
	settingsService driving.SettingsService
	authService     driving.AuthService
	notifier        *Notifier

	bootstrap    Bootstrap
	shutdown     func()
	shutdownOnce sync.Once

	opts Options
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents from the terminal",
	Long: `docchat uploads documents to a document-chat backend, follows their
processing status, and streams answers to questions about them.

Run without arguments to launch the interactive terminal UI.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runTUI,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging to stderr")
	flags.StringVar(&opts.ConfigDir, "config-dir", "", "config directory (default ~/.docchat)")
	flags.StringVar(&opts.APIURL, "api-url", "", "backend base URL for this run")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that assembles services after flag parsing.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	chatService = s.Chat
	documentService = s.Documents
	settingsService = s.Settings
	authService = s.Auth
	notifier = s.Notifier
	shutdown = s.Shutdown
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	defer Shutdown()
	return rootCmd.ExecuteContext(ctx)
}

// Shutdown stops background work started by the services. Safe to call twice.
func Shutdown() {
	shutdownOnce.Do(func() {
		if shutdown != nil {
			shutdown()
		}
	})
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if bootstrap == nil || skipsBootstrap(cmd) {
		return nil
	}

	services, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	SetServices(services)
	return nil
}

// skipsBootstrap reports commands that run without services.
func skipsBootstrap(cmd *cobra.Command) bool {
	return cmd == versionCmd
}

var (
	errChatNotConfigured     = errors.New("chat service not configured")
	errDocumentNotConfigured = errors.New("document service not configured")
	errSettingsNotConfigured = errors.New("settings service not configured")
	errAuthNotConfigured     = errors.New("auth service not configured")
)
