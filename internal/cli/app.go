// Package cli implements the interactive photo-vault shell: a small REPL
// that fronts the access session with unlock, add, list, show, and recovery
// commands.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/photovault/internal/config"
	"github.com/dmitrijs2005/photovault/internal/cryptox"
	"github.com/dmitrijs2005/photovault/internal/guard"
	"github.com/dmitrijs2005/photovault/internal/keystore"
	"github.com/dmitrijs2005/photovault/internal/logging"
	"github.com/dmitrijs2005/photovault/internal/statedb"
	"github.com/dmitrijs2005/photovault/internal/vault"
)

type App struct {
	config  *config.Config
	session *vault.Session
	engine  *cryptox.Engine
	db      *sql.DB
	log     logging.Logger
	reader  *bufio.Reader
}

// NewApp wires the full stack: state database (with migrations), OS-keychain
// keystore, crypto engine, blob store, credential guard, and the access
// session over them.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	db, err := statedb.Open(ctx, c.StateDBPath)
	if err != nil {
		return nil, err
	}

	keys := keystore.NewKeyringStore(c.KeyringService)
	engine := cryptox.NewEngine(keys)

	store, err := vault.NewStore(vault.Options{
		Dir:             c.VaultDir,
		CacheMaxEntries: c.CacheMaxEntries,
		CacheMaxBytes:   c.CacheMaxBytes,
		ThumbnailMaxDim: c.ThumbnailMaxDim,
	}, engine, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	g := guard.NewGuard(keys, db, log)
	session := vault.NewSession(g, store, nil, c.AutoLockTimeout, log)

	return &App{
		config:  c,
		session: session,
		engine:  engine,
		db:      db,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close locks the session and releases the state database.
func (a *App) Close() {
	a.session.Lock()
	_ = a.db.Close()
}

func (a *App) isUnlocked() bool {
	return a.session.IsUnlocked()
}
