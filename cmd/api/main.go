package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	v1 "guru-chat/cmd/api/router/v1"
	"guru-chat/internal/infrastructure/auth"
	cacheadapter "guru-chat/internal/infrastructure/cache/adapter"
	"guru-chat/internal/infrastructure/config"
	"guru-chat/internal/infrastructure/database"
	"guru-chat/internal/infrastructure/logger"
	queueadapter "guru-chat/internal/infrastructure/queue/adapter"
	"guru-chat/internal/infrastructure/realtime"
	feedport "guru-chat/internal/infrastructure/realtime/port"
	"guru-chat/internal/middleware"
	"guru-chat/internal/pkg/chat/application/notification"
	"guru-chat/internal/pkg/chat/application/usecase"
	repoAdapter "guru-chat/internal/pkg/chat/persistence/repository/adapter"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
	httpHandler "guru-chat/internal/pkg/chat/presentation/http"
	dirAdapter "guru-chat/internal/repository/adapter"
	directory "guru-chat/internal/repository/port"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateAPI()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		closers []func()
		checks  = map[string]v1.HealthCheck{}
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	repo, err := openStore(ctx, cfg, checks, &closers)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open chat store")
		return
	}

	var (
		feed     feedport.ChangeFeed = realtime.NewFeed(0)
		dir      directory.UserDirectory
		notifier usecase.Notifier
	)

	var redisCache *cacheadapter.RedisCache
	if cfg.RedisURL != "" {
		redisCache, err = cacheadapter.Dial(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect to redis")
			return
		}
		closers = append(closers, func() { _ = redisCache.Close() })
		checks["redis"] = redisCache.Ping

		redisFeed, err := realtime.NewRedisFeed(ctx, redisCache.Client(), realtime.DefaultEventsChannel)
		if err != nil {
			logger.Error().Err(err).Msg("failed to subscribe to change events")
			return
		}
		closers = append(closers, func() { _ = redisFeed.Close() })
		feed = redisFeed
	} else {
		logger.Warn().Msg("REDIS_URL not set: single-node change feed, no directory cache, no push notifications")
	}

	if cfg.DirectoryURL != "" {
		httpDir, err := dirAdapter.NewHTTPUserDirectory(cfg.DirectoryURL, nil)
		if err != nil {
			logger.Error().Err(err).Msg("invalid directory configuration")
			return
		}
		dir = httpDir
		if redisCache != nil {
			dir = dirAdapter.NewCachedUserDirectory(httpDir, redisCache, cfg.DirectoryCacheTTL)
		}
	} else {
		dir = dirAdapter.NewStaticUserDirectory()
	}

	if cfg.RedisURL != "" {
		queue, err := queueadapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("failed to create queue client")
			return
		}
		trigger := notification.NewTrigger(queue, dir)
		// the trigger drains before the queue client closes
		closers = append(closers, func() { _ = queue.Close() }, trigger.Close)
		notifier = trigger
	}

	sockets := realtime.NewRouter()
	closers = append(closers, sockets.Close)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RecoveryMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.CORSMiddleware(cfg.AllowedOrigins()),
	)
	v1.RegisterRoutes(r, httpHandler.Dependencies{
		Repo:      repo,
		Feed:      feed,
		Directory: dir,
		Notifier:  notifier,
		Sockets:   sockets,
		Auth:      auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, 24*time.Hour),

		SendLimiter:    middleware.NewRateLimiter(cfg.SendRatePerMinute, cfg.SendRateBurst),
		AllowedOrigins: cfg.AllowedOrigins(),
	}, checks)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("chat api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown; the socket router closes them
	sockets.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

func openStore(ctx context.Context, cfg *config.Config, checks map[string]v1.HealthCheck, closers *[]func()) (repository.ChatRepository, error) {
	if cfg.StoreDriver != config.StorePostgres {
		logger.Warn().Msg("using in-memory chat store; data is lost on restart")
		return repoAdapter.NewMemoryChatRepository(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := database.Connect(connectCtx, cfg.DBURL, database.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, pool.Close)
	checks["postgres"] = pool.Ping

	if err := database.ApplySchema(connectCtx, pool); err != nil {
		return nil, err
	}
	return repoAdapter.NewPgChatRepository(pool), nil
}
