package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/config"
	"quizdesk/internal/infra/memory"
	"quizdesk/internal/infra/postgres"
	redisinfra "quizdesk/internal/infra/redis"
	"quizdesk/internal/logging"
	"quizdesk/internal/metrics"
	transport "quizdesk/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	policy, err := app.ParseResultsPolicy(cfg.Quiz.ResultsPolicy)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		store  app.Store
		health transport.Pinger
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := postgres.NewStore(pool)
		store, health = pg, pg
		log.Info("using postgres content store")
	} else {
		mem := memory.NewStore()
		if cfg.SeedSample() {
			if err := seedSampleCatalog(ctx, mem); err != nil {
				return err
			}
		}
		store = mem
		log.Warn("postgres not configured, using in-memory content store")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	choicesTTL := config.TTLDuration(cfg.Cache.ChoicesTTL, 5*time.Minute)
	var cache app.ChoiceCache
	var sessions app.AdminSessionStore
	if redisClient != nil {
		cache = redisinfra.NewChoiceCache(redisClient, store, choicesTTL)
		sessions = redisinfra.NewSessionStore(redisClient)
	} else {
		cache = memory.NewChoiceCache(store, choicesTTL)
		sessions = memory.NewSessionStore()
	}

	if cfg.Admin.Email == "" || cfg.Admin.PasswordHash == "" {
		log.Warn("admin credentials not configured, admin login is disabled")
	}

	settings := app.NewSettingsService(store)
	quiz := app.NewQuizService(settings, store, cache, store,
		app.WithResultsPolicy(policy),
		app.WithLeaderboardHub(app.NewLeaderboardHub()),
		app.WithObserver(metrics.Observer{}),
		app.WithLogger(log),
	)
	catalog := app.NewCatalogService(store, store, store, cache, log)
	auth := app.NewAuthService(app.AdminCredentials{
		Email:        cfg.Admin.Email,
		PasswordHash: cfg.Admin.PasswordHash,
		SessionTTL:   config.TTLDuration(cfg.Admin.SessionTTL, 12*time.Hour),
	}, sessions)

	if cfg.Log.Mode == "prod" || cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(transport.RouterDeps{
		Quiz:           quiz,
		Catalog:        catalog,
		Settings:       settings,
		Auth:           auth,
		Log:            log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CookieSecure:   cfg.Admin.CookieSecure,
		Health:         health,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort, "results_policy", string(policy))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
