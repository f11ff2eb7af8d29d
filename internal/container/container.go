package container

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/safelink/internal/analytics"
	analyticsstore "github.com/serroba/safelink/internal/analytics/store"
	"github.com/serroba/safelink/internal/auth"
	"github.com/serroba/safelink/internal/handlers"
	"github.com/serroba/safelink/internal/health"
	"github.com/serroba/safelink/internal/messaging"
	"github.com/serroba/safelink/internal/metrics"
	"github.com/serroba/safelink/internal/middleware"
	"github.com/serroba/safelink/internal/quota"
	"github.com/serroba/safelink/internal/ratelimit"
	"github.com/serroba/safelink/internal/shortener"
	"github.com/serroba/safelink/internal/store"
	"github.com/serroba/safelink/internal/urlsafety"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// Redis owns the shared Redis client and closes it on shutdown.
type Redis struct {
	Client *redis.Client
}

func (r *Redis) Shutdown() error {
	return r.Client.Close()
}

// Postgres owns the connection pool and closes it on shutdown.
type Postgres struct {
	Pool *pgxpool.Pool
}

func (p *Postgres) Shutdown() error {
	p.Pool.Close()

	return nil
}

// LoggerPackage provides the zap logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "console" {
			return zap.NewDevelopment()
		}

		return zap.NewProduction()
	})
}

// RedisPackage provides the Redis client when an address is configured.
func RedisPackage(i *do.Injector) {
	opts := do.MustInvoke[*Options](i)
	if opts.RedisAddr == "" {
		return
	}

	do.Provide(i, func(i *do.Injector) (*Redis, error) {
		client := redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("connect redis %s: %w", opts.RedisAddr, err)
		}

		return &Redis{Client: client}, nil
	})
}

// PostgresPackage provides the connection pool when the postgres backend is selected.
func PostgresPackage(i *do.Injector) {
	opts := do.MustInvoke[*Options](i)
	if opts.Storage != StoragePostgres {
		return
	}

	do.Provide(i, func(i *do.Injector) (*Postgres, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if opts.AutoMigrate {
			applied, err := store.Migrate(ctx, pool)
			if err != nil {
				pool.Close()

				return nil, err
			}

			logger.Info("migrations applied", zap.Strings("files", applied))
		}

		return &Postgres{Pool: pool}, nil
	})
}

// RepositoryPackage provides the link repository: the selected backend, behind
// the Redis cache when Redis is configured and the local cache when sized.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		var repo shortener.Repository

		switch opts.Storage {
		case StorageMemory, "":
			repo = store.NewMemoryStore()
		case StoragePostgres:
			pg, err := do.Invoke[*Postgres](i)
			if err != nil {
				return nil, err
			}

			repo = store.NewPostgresStore(pg.Pool)
		default:
			return nil, fmt.Errorf("unknown storage backend %q", opts.Storage)
		}

		if opts.RedisAddr != "" {
			rdb, err := do.Invoke[*Redis](i)
			if err != nil {
				return nil, err
			}

			repo = store.NewRedisCacheRepository(repo, rdb.Client, seconds(opts.CacheTTL))
		}

		if opts.LocalCacheSize > 0 {
			local, err := store.NewLocalCacheRepository(repo, int64(opts.LocalCacheSize), seconds(opts.CacheTTL))
			if err != nil {
				return nil, err
			}

			repo = local
		}

		return repo, nil
	})
}

// MetricsPackage provides the Prometheus collectors.
func MetricsPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})
}

// ValidatorPackage provides the URL safety validator over the system resolver.
func ValidatorPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*urlsafety.Validator, error) {
		opts := do.MustInvoke[*Options](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		return urlsafety.NewValidator(
			urlsafety.NewNetResolver(net.DefaultResolver),
			urlsafety.WithLookupTimeout(time.Duration(opts.DNSTimeout)*time.Millisecond),
			urlsafety.WithLookupObserver(m),
		), nil
	})
}

// AllocatorPackage provides the short code allocator.
func AllocatorPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Allocator, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.MinLength < 0 || opts.MinLength > 255 {
			return nil, fmt.Errorf("min length %d out of range", opts.MinLength)
		}

		return shortener.NewAllocator(opts.Alphabet, uint8(opts.MinLength))
	})
}

// RateLimitPackage provides the fixed window limiter, counting in Redis when configured.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*ratelimit.FixedWindowLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		var counter ratelimit.Counter = store.NewRateLimitMemoryStore()

		if opts.RedisAddr != "" {
			rdb, err := do.Invoke[*Redis](i)
			if err != nil {
				return nil, err
			}

			counter = store.NewRateLimitRedisStore(rdb.Client)
		}

		return ratelimit.NewFixedWindowLimiter(counter, opts.Policy()), nil
	})
}

// QuotaPackage provides the per-owner link quota.
func QuotaPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*quota.Enforcer, error) {
		opts := do.MustInvoke[*Options](i)
		repo := do.MustInvoke[shortener.Repository](i)

		return quota.NewEnforcer(repo, int64(opts.QuotaLimit)), nil
	})
}

// ServicePackage provides the link service.
func ServicePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		return shortener.NewService(
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[*shortener.Allocator](i),
			do.MustInvoke[*urlsafety.Validator](i),
			do.MustInvoke[*quota.Enforcer](i),
			do.MustInvoke[*ratelimit.FixedWindowLimiter](i),
			do.MustInvoke[*zap.Logger](i),
			shortener.WithObserver(do.MustInvoke[*metrics.Metrics](i)),
		), nil
	})
}

// AuthPackage provides the authenticator with sessions in Redis when configured.
func AuthPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*auth.Authenticator, error) {
		opts := do.MustInvoke[*Options](i)

		tokens, err := auth.ParseAPITokens(opts.APITokens)
		if err != nil {
			return nil, err
		}

		users, err := auth.ParseUsers(opts.Users)
		if err != nil {
			return nil, err
		}

		var sessions auth.SessionStore = store.NewSessionMemoryStore()

		if opts.RedisAddr != "" {
			rdb, err := do.Invoke[*Redis](i)
			if err != nil {
				return nil, err
			}

			sessions = store.NewSessionRedisStore(rdb.Client)
		}

		return auth.NewAuthenticator(
			tokens,
			users,
			sessions,
			do.MustInvoke[*ratelimit.FixedWindowLimiter](i),
			seconds(opts.SessionTTL),
			do.MustInvoke[*zap.Logger](i),
		)
	})
}

// PubSubPackage provides the event publisher and subscriber: Redis streams when
// Redis is configured, otherwise one in-process channel shared by both.
func PubSubPackage(i *do.Injector) {
	opts := do.MustInvoke[*Options](i)

	if opts.RedisAddr == "" {
		do.Provide(i, func(i *do.Injector) (*gochannel.GoChannel, error) {
			logger := messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i))

			return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger), nil
		})
	}

	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		if opts.RedisAddr == "" {
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		}

		rdb, err := do.Invoke[*Redis](i)
		if err != nil {
			return nil, err
		}

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: rdb.Client,
		}, messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i)))
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (message.Subscriber, error) {
		if opts.RedisAddr == "" {
			return do.MustInvoke[*gochannel.GoChannel](i), nil
		}

		rdb, err := do.Invoke[*Redis](i)
		if err != nil {
			return nil, err
		}

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        rdb.Client,
			ConsumerGroup: opts.ConsumerGroup,
		}, messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i)))
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		return subscriber, nil
	})
}

// ConsumerGroupPackage provides the analytics consumers.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		subscriber := do.MustInvoke[message.Subscriber](i)

		group := messaging.NewConsumerGroup(subscriber, logger)
		analytics.RegisterConsumers(group, subscriber, analyticsstore.NewNoop(logger), logger)

		return group, nil
	})
}

// HTTPPackage provides the router and the API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		limiter := do.MustInvoke[*ratelimit.FixedWindowLimiter](i)
		authn := do.MustInvoke[*auth.Authenticator](i)
		publishers := do.MustInvoke[*messaging.PublisherGroup](i)

		config := huma.DefaultConfig("Safelink", "1.0.0")
		config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			middleware.SecurityScheme: {Type: "http", Scheme: "bearer"},
		}

		api := humachi.New(router, config)

		api.UseMiddleware(middleware.RequestMeta(api, opts.TrustProxy))
		api.UseMiddleware(m.Middleware())
		api.UseMiddleware(middleware.GlobalRateLimiter(api, limiter, logger))
		api.UseMiddleware(middleware.Authenticate(api, authn, logger))

		links := handlers.NewLinkHandler(
			do.MustInvoke[*shortener.Service](i),
			opts.PublicBaseURL(),
			analytics.NewPublishers(publishers.Publisher()),
			logger,
		)
		handlers.RegisterRoutes(api, links, handlers.NewSessionHandler(authn))

		checkers := map[string]health.Checker{}

		if opts.RedisAddr != "" {
			checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*Redis](i).Client)
		}

		if opts.Storage == StoragePostgres {
			checkers["postgres"] = health.NewPostgresChecker(do.MustInvoke[*Postgres](i).Pool)
		}

		health.RegisterRoutes(api, health.NewHandler(checkers))

		router.Handle("/metrics", m.Handler())

		return api, nil
	})
}
