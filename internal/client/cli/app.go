package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

const requestTimeout = 15 * time.Second

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	log         logging.Logger
	store       *session.Store
	authService services.AuthService
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer

	modeMu sync.Mutex
	mode   Mode
}

// NewApp opens the session database (unless persistence is disabled) and
// wires the session store, HTTP client and auth service.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	a := &App{config: c, log: log, reader: bufio.NewReader(os.Stdin), out: os.Stdout}

	var storage session.Storage
	if c.StoragePath != "" {
		db, err := client.InitDatabase(ctx, c.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("error initializing session database: %w", err)
		}
		a.db = db
		storage = metadata.NewStorage(db)
	}

	report := common.ErrorReporter(func(op string, err error) {
		log.Debug(ctx, "suppressed failure", "op", op, "error", err)
	})

	a.store = session.NewStore(ctx, storage,
		session.WithLogger(log.With("component", "session")),
		session.WithErrorReporter(report))

	api := client.NewHTTPClient(c.ServerBaseURL, a.store,
		client.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		client.WithLogger(log.With("component", "api")))
	a.authService = services.NewAuthService(api, a.store,
		services.WithLogger(log.With("component", "auth")),
		services.WithErrorReporter(report))

	a.store.Subscribe(func(s session.Session) {
		log.Debug(ctx, "session changed", "authenticated", s.IsAuthenticated, "loading", s.IsLoading)
	})

	return a, nil
}

// Close releases the session database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.store.IsAuthenticated()
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.log.Info(ctx, "connectivity changed", "mode", mode)
	}
}

// StartOnlineStatusWatcher pings the server every interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.authService.Ping(pctx); err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}
