package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure FileTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*FileTokenProvider)(nil)

// FileTokenProvider serves a token read from a file. Another process (a
// login helper, a sidecar) refreshes the file; Watch keeps the cached copy
// current.
type FileTokenProvider struct {
	path      string
	inspector driven.TokenInspector

	mu    sync.RWMutex
	token string
	err   error
}

// NewFileTokenProvider creates a provider reading path.
// A missing or unreadable file is not an error here; GetToken reports it.
func NewFileTokenProvider(path string, inspector driven.TokenInspector) (*FileTokenProvider, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("token file %s: %w", path, err)
	}
	p := &FileTokenProvider{path: abs, inspector: inspector}
	p.reload()
	return p, nil
}

// Path returns the absolute token file path.
func (p *FileTokenProvider) Path() string {
	return p.path
}

func (p *FileTokenProvider) reload() {
	data, err := os.ReadFile(p.path)
	token := strings.TrimSpace(string(data))

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case errors.Is(err, os.ErrNotExist):
		p.token, p.err = "", domain.ErrAuthRequired
	case err != nil:
		p.token, p.err = "", fmt.Errorf("read token file: %w", err)
	case token == "":
		p.token, p.err = "", domain.ErrAuthRequired
	default:
		p.token, p.err = token, nil
	}
	logger.Debug("auth: token file %s reloaded (present=%t)", p.path, p.token != "")
}

// Watch re-reads the file whenever it changes until ctx is done.
// The parent directory is watched so atomic replacements are seen.
func (p *FileTokenProvider) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch token file: %w", err)
	}
	if err := w.Add(filepath.Dir(p.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch token file: %w", err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != p.path {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
					ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					p.reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("auth: token file watcher: %v", err)
			}
		}
	}()
	return nil
}

// GetToken returns the cached token, failing early when it has expired.
func (p *FileTokenProvider) GetToken(_ context.Context) (string, error) {
	p.mu.RLock()
	token, err := p.token, p.err
	p.mu.RUnlock()

	if err != nil {
		return "", err
	}
	if err := checkExpiry(p.inspector, token); err != nil {
		return "", err
	}
	return token, nil
}

// Kind returns TokenSourceFile.
func (p *FileTokenProvider) Kind() domain.TokenSourceKind {
	return domain.TokenSourceFile
}

// IsAuthenticated returns true if the file currently holds a token.
func (p *FileTokenProvider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token != ""
}
