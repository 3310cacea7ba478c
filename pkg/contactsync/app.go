package contactsync

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mew-app/contacts-sync/pkg/logger"
	"github.com/mew-app/contacts-sync/pkg/mew"
	"github.com/mew-app/contacts-sync/pkg/models"
	"github.com/mew-app/contacts-sync/pkg/reconcile"
	"github.com/mew-app/contacts-sync/pkg/scheduler"
)

// App wires the components of one synchronization session: the scheduler,
// the graph client bound to one user root, the resolver, and the engine.
type App struct {
	cfg      *Config
	log      zerolog.Logger
	sched    *scheduler.Scheduler
	client   *mew.Client
	resolver *reconcile.Resolver
	engine   *reconcile.Engine

	rootNodeID models.NodeID
	authorID   string
}

// New builds an App from the configuration. The user-root URL is parsed
// here; a malformed URL fails construction rather than the first request.
func New(cfg *Config) (*App, error) {
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log := logger.New().WithLevel(cfg.LogLevel).Make()

	rootNodeID, authorID, err := mew.ParseUserRootURL(cfg.MewUserRootURL)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(scheduler.Options{
		RateLimit: cfg.RateLimit,
		BatchSize: cfg.BatchSize,
	}, log)

	client := mew.NewClient(mew.Config{
		BaseURL:      cfg.MewBaseURL,
		Auth0Domain:  cfg.Auth0Domain,
		ClientID:     cfg.Auth0ClientID,
		ClientSecret: cfg.Auth0ClientSecret,
		Audience:     cfg.Auth0Audience,
		AuthorID:     authorID,
		Timeout:      cfg.RequestTimeout,
	}, sched, log)

	engine := reconcile.NewEngine(client, authorID, log,
		reconcile.WithChunkSizes(cfg.ChunkSize, cfg.ChunkSize))

	return &App{
		cfg:        cfg,
		log:        log,
		sched:      sched,
		client:     client,
		resolver:   reconcile.NewResolver(client, log),
		engine:     engine,
		rootNodeID: rootNodeID,
		authorID:   authorID,
	}, nil
}

// Close cancels any requests still queued in the scheduler.
func (a *App) Close() {
	a.sched.Clear()
}
