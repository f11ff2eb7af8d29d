package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/safelink/internal/container"
	"github.com/serroba/safelink/internal/messaging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	opts := &container.Options{}

	cmd := &cobra.Command{
		Use:   "consumer",
		Short: "Consume link events from Redis streams",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Without Redis the server consumes its own events in process.
			if opts.RedisAddr == "" {
				return errors.New("a redis address is required")
			}

			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.RedisAddr, "redis-addr", envOr("SERVICE_REDIS_ADDR", "localhost:6379"), "Redis address")
	flags.StringVar(&opts.LogFormat, "log-format", envOr("SERVICE_LOG_FORMAT", "json"), "json or console")
	flags.StringVar(&opts.ConsumerGroup, "consumer-group",
		envOr("SERVICE_CONSUMER_GROUP", "safelink-analytics"), "Redis stream consumer group")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *container.Options) error {
	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PubSubPackage(injector)
	container.ConsumerGroupPackage(injector)

	logger, err := do.Invoke[*zap.Logger](injector)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	group, err := do.Invoke[*messaging.ConsumerGroup](injector)
	if err != nil {
		logger.Error("failed to build consumer group", zap.Error(err))

		return err
	}

	if err := group.Start(ctx); err != nil {
		logger.Error("failed to start consumer group", zap.Error(err))
		_ = injector.Shutdown()

		return err
	}

	logger.Info("consuming", zap.Strings("topics", group.Topics()), zap.String("group", opts.ConsumerGroup))

	<-ctx.Done()
	logger.Info("shutting down")

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))

		return err
	}

	logger.Info("shutdown complete")

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
