// Package app wires configuration into the running notification system.
// Both the worker and the one-shot drain command build their collaborators
// here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"notice-dispatch/internal/config"
	"notice-dispatch/internal/infra/adapter/persistence/memory"
	"notice-dispatch/internal/infra/adapter/persistence/postgres"
	"notice-dispatch/internal/infra/adapter/persistence/sqlite"
	"notice-dispatch/internal/infra/alert"
	"notice-dispatch/internal/infra/db"
	"notice-dispatch/internal/infra/lock"
	"notice-dispatch/internal/infra/mailer"
	"notice-dispatch/internal/infra/notifier"
	"notice-dispatch/internal/infra/render"
	"notice-dispatch/internal/repository"
	"notice-dispatch/internal/usecase/drain"
	"notice-dispatch/internal/usecase/notice"
	"notice-dispatch/internal/usecase/notify"
	"notice-dispatch/internal/usecase/observe"
)

// App holds the wired system. Call Close when done.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	DB           *sql.DB
	Repos        repository.Set
	// Memory is the backing store when the memory driver is selected.
	Memory       *memory.Store
	Notices      *notice.Service
	Settings     *notice.Settings
	Registry     *notify.Registry
	Dispatcher   *notify.Dispatcher
	Observations *observe.Service
	Locks        lock.Provider
	Alerter      drain.Alerter

	closers []func() error
}

// Build connects the store and lock backend and constructs every service.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openLocks(ctx); err != nil {
		return nil, err
	}

	catalog := render.NewCatalog(cfg.DefaultLocale)
	for locale, msgs := range cfg.Translations {
		for key, text := range msgs {
			if err := catalog.AddTranslation(locale, key, text); err != nil {
				return nil, fmt.Errorf("translation %s/%s: %w", locale, key, err)
			}
		}
	}
	renderer, err := render.NewTemplateRenderer(catalog)
	if err != nil {
		return nil, fmt.Errorf("build renderer: %w", err)
	}
	if cfg.TemplatesDir != "" {
		if err := renderer.LoadFS(os.DirFS(cfg.TemplatesDir)); err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
	}

	var mail mailer.Sender
	if cfg.SMTP.Enabled() {
		smtp, err := mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, fmt.Errorf("build smtp mailer: %w", err)
		}
		mail = smtp
	}

	var slack notifier.Notifier
	if cfg.Slack.WebhookURL != "" {
		sn := notifier.NewSlackNotifier(notifier.SlackConfig{
			WebhookURL:        cfg.Slack.WebhookURL,
			Timeout:           cfg.Slack.Timeout,
			RequestsPerSecond: cfg.Slack.RequestsPerSecond,
			Burst:             cfg.Slack.Burst,
		})
		sn.OnRateLimitWait = notify.RecordRateLimitWait
		slack = sn
	}

	a.Settings = &notice.Settings{Repo: a.Repos.Settings}
	a.Notices = &notice.Service{Types: a.Repos.NoticeTypes, Notices: a.Repos.Notices}

	a.Registry, err = notify.LoadBackends(cfg.Backends, notify.DefaultFactories(), notify.BackendDeps{
		Settings: a.Settings,
		Renderer: renderer,
		Mailer:   mail,
		Slack:    slack,
		Logger:   logger,
		Site:     cfg.Site,
	})
	if err != nil {
		return nil, err
	}

	a.Dispatcher = &notify.Dispatcher{
		Registry: a.Registry,
		Notices:  a.Notices,
		Batches:  a.Repos.Batches,
		Renderer: renderer,
		Locales:  catalog,
		Site:     cfg.Site,
		QueueAll: cfg.QueueAll,
	}
	a.Observations = &observe.Service{
		Observations: a.Repos.Observations,
		Types:        a.Repos.NoticeTypes,
		Users:        a.Repos.Users,
		Sender:       a.Dispatcher,
	}

	if len(cfg.Admins) > 0 && mail != nil {
		a.Alerter = &alert.MailAlerter{Mailer: mail, Admins: cfg.Admins}
	} else {
		a.Alerter = &alert.LogAlerter{Logger: logger}
	}

	logger.Info("notification system configured",
		slog.String("store", cfg.Store.Driver),
		slog.String("lock", cfg.Lock.Backend),
		slog.Int("backends", a.Registry.Len()),
		slog.Bool("queue_all", cfg.QueueAll))
	ok = true
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Store
	switch cfg.Driver {
	case config.StorePostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.DB = conn
		a.closers = append(a.closers, conn.Close)
		if cfg.Migrate {
			if err := db.MigrateUp(ctx, conn); err != nil {
				return fmt.Errorf("migrate postgres: %w", err)
			}
		}
		a.Repos = postgres.NewSet(conn)
	case config.StoreSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.DB = conn
		a.closers = append(a.closers, conn.Close)
		if cfg.Migrate {
			if err := db.MigrateUpSQLite(ctx, conn); err != nil {
				return fmt.Errorf("migrate sqlite: %w", err)
			}
		}
		a.Repos = sqlite.NewSet(conn)
	case config.StoreMemory:
		a.Logger.Warn("using the in-memory store; queued notices are lost on exit")
		a.Memory = memory.NewStore()
		a.Repos = a.Memory.Repositories()
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	return nil
}

func (a *App) openLocks(ctx context.Context) error {
	cfg := a.Config.Lock
	switch cfg.Backend {
	case config.LockFile:
		a.Locks = lock.NewFileProvider(cfg.Dir)
	case config.LockPostgres:
		if a.DB == nil {
			return fmt.Errorf("postgres lock requires a database connection")
		}
		a.Locks = lock.NewPostgresProvider(a.DB)
	case config.LockRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		a.Locks = lock.NewRedisProvider(client, cfg.RedisTTL)
	default:
		return fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
	return nil
}

// Engine returns a drain engine using the app's store, locks and alerter.
// Completion is reported to the metrics and log observers plus extra.
func (a *App) Engine(cfg drain.Config, extra ...drain.Observer) *drain.Engine {
	if cfg.SiteName == "" {
		cfg.SiteName = a.Config.Site.Name
	}
	observers := append(drain.Observers{drain.MetricsObserver{}, drain.LogObserver{}}, extra...)
	return drain.NewEngine(cfg, drain.Deps{
		Locks:    a.Locks,
		Batches:  a.Repos.Batches,
		Users:    a.Repos.Users,
		Sender:   a.Dispatcher,
		Alerter:  a.Alerter,
		Observer: observers,
		Logger:   a.Logger,
	})
}

// Ping checks the database connection, when there is one.
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
