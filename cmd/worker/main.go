package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"guru-chat/internal/infrastructure/config"
	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/infrastructure/push"
	queueadapter "guru-chat/internal/infrastructure/queue/adapter"
	"guru-chat/internal/pkg/chat/application/task"
)

// The worker drains the notifications queue and hands each push to the gateway.
func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateWorker()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	if cfg.PushGatewayURL == "" {
		logger.Warn().Msg("PUSH_GATEWAY_URL not set: notifications will be dropped")
	}

	srv, err := queueadapter.NewAsynqServer(cfg.RedisURL, queueadapter.ServerOptions{
		Concurrency: cfg.AsynqConcurrency,
		Queues:      cfg.AsynqQueues,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create worker")
	}
	task.RegisterPushNotificationTask(srv, push.NewHTTPGateway(cfg.PushGatewayURL, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Int("concurrency", cfg.AsynqConcurrency).Str("queues", cfg.AsynqQueues).Msg("worker started")
	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
	logger.Info().Msg("worker stopped")
}
