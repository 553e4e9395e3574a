// Package cli is the interactive shell over the record store: a small
// REPL for inspecting and administering a traveler's local vault.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"tripvault/internal/common"
	"tripvault/internal/config"
	"tripvault/internal/logging"
	"tripvault/internal/store"
)

// App holds the open store and the interactive session state.
type App struct {
	config  *config.Config
	store   *store.Store
	log     logging.Logger
	ownerID string
	reader  *bufio.Reader
}

// NewApp opens the store and builds the shell. When encryption is enabled
// and the passphrase env var is empty, the user is prompted for the
// passphrase before the store opens; the store reads it from the same
// env var, so the prompt just fills the gap.
func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	if cfg.EncryptionEnabled && os.Getenv(cfg.PassphraseEnv) == "" {
		pw, err := GetPassphrase(os.Stdout)
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		if err := os.Setenv(cfg.PassphraseEnv, string(pw)); err != nil {
			return nil, err
		}
		common.WipeByteArray(pw)
	}

	s, err := store.Open(cfg, log)
	if err != nil {
		return nil, err
	}

	return &App{
		config: cfg,
		store:  s,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

// Run executes the REPL until the user exits, then closes the store.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.store.Close(); err != nil {
			a.log.Error(ctx, "store close failed", "error", err)
		}
	}()
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) isInitialized() bool {
	return a.ownerID != ""
}

func (a *App) status() string {
	if !a.isInitialized() {
		return "no owner"
	}
	return a.ownerID
}
