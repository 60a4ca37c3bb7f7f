package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	billinghttp "github.com/quillpost/quillpost/modules/billing"
	"github.com/quillpost/quillpost/modules/feed"
	"github.com/quillpost/quillpost/pkg/billing"
	"github.com/quillpost/quillpost/pkg/catalog"
	"github.com/quillpost/quillpost/pkg/config"
	"github.com/quillpost/quillpost/pkg/email"
	"github.com/quillpost/quillpost/pkg/httpserver"
	"github.com/quillpost/quillpost/pkg/logger"
	"github.com/quillpost/quillpost/pkg/notifier"
	"github.com/quillpost/quillpost/pkg/opensearch"
	"github.com/quillpost/quillpost/pkg/pg"
	"github.com/quillpost/quillpost/pkg/redis"
	"github.com/quillpost/quillpost/pkg/subscription"
	"github.com/quillpost/quillpost/pkg/viewquota"
)

type appConfig struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppName string `env:"APP_NAME" envDefault:"quillpost"`

	PlansPath string `env:"PLANS_PATH" envDefault:"plans.yml"`

	// DirectoryURL points at the identity service's internal user lookup.
	// When empty, lifecycle notifications are logged instead of emailed.
	DirectoryURL string `env:"USER_DIRECTORY_URL"`

	Server  httpserver.Config
	PG      pg.Config
	Redis   redis.Config
	Search  opensearch.Config
	Billing billing.Config
	Email   email.Config
	Quota   viewquota.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.AppEnv, cfg.AppName))
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	search, err := opensearch.New(ctx, cfg.Search)
	if err != nil {
		return fmt.Errorf("connect opensearch: %w", err)
	}

	plans, err := catalog.New(ctx, catalog.NewYAMLSource(cfg.PlansPath))
	if err != nil {
		return fmt.Errorf("load plan catalog: %w", err)
	}

	gateway, err := billing.NewPayPalGateway(cfg.Billing, log)
	if err != nil {
		return fmt.Errorf("init billing gateway: %w", err)
	}

	profiles := subscription.NewPGProfileStore(pool)
	sessions := subscription.NewPGSessionStore(pool)
	notify := buildNotifier(cfg, log)

	svc := subscription.NewService(profiles, sessions, gateway, plans,
		subscription.WithNotifier(notify),
		subscription.WithLogger(log),
	)
	rec := subscription.NewReconciler(profiles, sessions, gateway,
		subscription.NewRedisDeduper(rdb),
		subscription.NewPGLocker(pool),
		subscription.WithReconcilerNotifier(notify),
		subscription.WithReconcilerLogger(log),
	)

	quota := viewquota.Middleware(viewquota.NewRedisCounter(rdb, cfg.Quota.Window), cfg.Quota, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log,
		pg.Healthcheck(pool),
		redis.Healthcheck(rdb),
		opensearch.Healthcheck(search),
	))

	r.Mount("/", billinghttp.Router(billinghttp.RouterOptions{
		Service:    svc,
		Reconciler: rec,
		Plans:      plans,
		Verifier:   gateway,
		Logger:     log,
	}))
	r.Mount("/feed", feed.Router(feed.RouterOptions{
		Service:  svc,
		Searcher: feed.NewOpenSearchSearcher(search, cfg.Search.PostsIndex),
		Quota:    quota,
		Logger:   log,
	}))

	return httpserver.New(cfg.Server, log).Run(ctx, r)
}

// buildNotifier picks email delivery when both Postmark and the user
// directory are configured, otherwise falls back to log-only delivery so
// development environments need no external services.
func buildNotifier(cfg appConfig, log *slog.Logger) subscription.Notifier {
	if cfg.Email.PostmarkServerToken == "" || cfg.DirectoryURL == "" {
		log.Info("lifecycle notifications will be logged only")
		return notifier.NewLogNotifier(log)
	}

	sender, err := email.NewPostmarkClient(cfg.Email)
	if err != nil {
		log.Error("postmark client init failed, falling back to log notifier", "error", err)
		return notifier.NewLogNotifier(log)
	}
	return notifier.NewEmailNotifier(notifier.NewHTTPDirectory(cfg.DirectoryURL, nil), sender, log)
}
