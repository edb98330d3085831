package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"music-quiz-service/internal/app"
	"music-quiz-service/internal/config"
	"music-quiz-service/internal/event"
	"music-quiz-service/internal/infra/deezer"
	"music-quiz-service/internal/infra/gemini"
	"music-quiz-service/internal/infra/memory"
	pgstore "music-quiz-service/internal/infra/postgres"
	redisstore "music-quiz-service/internal/infra/redis"
	"music-quiz-service/internal/infra/spotify"
	"music-quiz-service/internal/logging"
	"music-quiz-service/internal/metrics"
	transport "music-quiz-service/internal/transport/http"
)

const serviceName = "music-quiz"

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
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(serviceName, cfg.Log.Level, os.Stdout)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	sessions, users := buildStores(cfg, pool, redisClient, log)
	catalog := buildCatalog(ctx, cfg, redisClient, log)

	publisher, err := event.NewPublisher(cfg.Events.URL, cfg.Events.Exchange, log)
	if err != nil {
		// Events are optional; a broker outage must not keep the quiz down.
		log.WithError(err).Warn("event publisher unavailable, continuing without events")
		publisher, _ = event.NewPublisher("", cfg.Events.Exchange, log)
	}
	defer publisher.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	contentTimeout := config.TTLDuration(cfg.Content.Timeout, 8*time.Second)
	opts := []app.Option{
		app.WithLogger(log),
		app.WithMetrics(m),
		app.WithPublisher(publisher),
		app.WithContentTimeout(contentTimeout),
	}
	if cfg.Preview.Enabled {
		opts = append(opts, app.WithPreviews(deezer.NewClient(cfg.Preview.BaseURL, config.TTLDuration(cfg.Preview.Timeout, 5*time.Second))))
	}
	if cfg.Content.APIKey != "" {
		opts = append(opts, app.WithContent(gemini.NewClient(cfg.Content.APIKey, cfg.Content.BaseURL, cfg.Content.Model, contentTimeout)))
	} else {
		log.Warn("content api key not configured, using question templates")
	}
	service := app.NewQuizService(sessions, users, catalog, opts...)

	if cfg.Auth.JWTSecret == "" {
		log.Warn("jwt secret not configured, every api request will be rejected")
	}
	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	wsHandler := transport.NewWSHandler(service, log, cfg.Server.AllowedOrigins, cfg.Quiz.LeaderboardLimit)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /ws", transport.Instrument("GET /ws", m, log, auth.Middleware(http.HandlerFunc(wsHandler.ServeWS))))
	transport.NewHandler(service, auth, log, cfg.Quiz.LeaderboardLimit).Register(mux, m)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.CORS(cfg.Server.AllowedOrigins, mux),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 30*time.Second),
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
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

// buildStores prefers Postgres for durable data, then Redis, then process memory.
func buildStores(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log logrus.FieldLogger) (app.SessionRepository, app.UserRepository) {
	switch {
	case pool != nil:
		log.Info("using postgres session and user stores")
		return pgstore.NewSessionStore(pool), pgstore.NewUserStore(pool)
	case redisClient != nil:
		log.Info("using redis session and user stores")
		return redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 0)), redisstore.NewUserStore(redisClient)
	default:
		log.Warn("no database configured, sessions and stats live in memory")
		return memory.NewSessionStore(), memory.NewUserStore()
	}
}

// buildCatalog wraps the Spotify client in a shared Redis cache when available.
func buildCatalog(ctx context.Context, cfg config.Config, redisClient *redis.Client, log logrus.FieldLogger) app.Catalog {
	if cfg.Catalog.ClientID == "" || cfg.Catalog.ClientSecret == "" {
		log.Warn("spotify credentials not configured, quizzes cannot be started")
	}
	client := spotify.NewClient(ctx, spotify.Config{
		ClientID:     cfg.Catalog.ClientID,
		ClientSecret: cfg.Catalog.ClientSecret,
		TokenURL:     cfg.Catalog.TokenURL,
		BaseURL:      cfg.Catalog.BaseURL,
		Market:       cfg.Catalog.Market,
		Timeout:      config.TTLDuration(cfg.Catalog.Timeout, 10*time.Second),
	})
	ttl := config.TTLDuration(cfg.Catalog.CacheTTL, 30*time.Minute)
	if redisClient != nil {
		return redisstore.NewCatalogCache(redisClient, client, ttl)
	}
	return memory.NewCatalogCache(client, ttl)
}
