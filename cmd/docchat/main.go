// Command docchat chats with uploaded documents from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docchat/internal/adapters/driven/auth"
	"github.com/custodia-labs/docchat/internal/adapters/driven/backend"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// bootstrap wires adapters into services once flags are parsed.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	var configStore driven.ConfigStore
	fileStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		logger.Warn("config unavailable, settings will not be saved: %v", err)
		configStore = memory.NewConfigStore()
	} else {
		logger.Debug("config: %s", fileStore.Path())
		configStore = fileStore
	}

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if opts.APIURL != "" {
		settings.API.BaseURL = opts.APIURL
	}

	inspector := auth.NewJWTInspector()
	provider, err := auth.NewTokenProvider(settings.Auth, inspector)
	if err != nil {
		return nil, fmt.Errorf("token provider: %w", err)
	}
	if fp, ok := provider.(*auth.FileTokenProvider); ok {
		if err := fp.Watch(ctx); err != nil {
			logger.Warn("token file changes will not be picked up: %v", err)
		}
	}

	notifier := cli.NewNotifier(os.Stderr)

	client, err := backend.NewClient(
		backend.ConfigFromSettings(settings.API),
		backend.WithTokenSource(auth.NewTokenSource(ctx, provider)),
		backend.WithRequestLogging(),
		backend.WithErrorHandler(func(err error) {
			notifier.Notify(domain.Notification{
				Level:   domain.NotificationError,
				Message: backend.ErrorMessage(err),
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	logger.Debug("backend: %s", settings.API.BaseURL)

	documentService := services.NewDocumentService(client, notifier, settings.Poll)

	return &cli.Services{
		Chat:      services.NewChatService(client, notifier),
		Documents: documentService,
		Settings:  settingsService,
		Auth:      services.NewAuthService(configStore, inspector, provider),
		Notifier:  notifier,
		Shutdown: func() {
			if err := documentService.Close(); err != nil {
				logger.Debug("close documents: %v", err)
			}
		},
	}, nil
}
