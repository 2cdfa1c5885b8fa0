// Package tui provides an interactive terminal user interface for docchat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
type Ports struct {
	// Chat opens per-document conversations.
	Chat driving.ChatService

	// Documents holds the document collection and its status poller.
	Documents driving.DocumentService

	// Settings exposes the loaded configuration. Optional.
	Settings driving.SettingsService

	// Auth reports the logged-in identity. Optional.
	Auth driving.AuthService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	return nil
}
