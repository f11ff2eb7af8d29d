package container

import (
	"fmt"
	"strings"
	"time"

	"github.com/serroba/safelink/internal/ratelimit"
)

// Storage backends for short links.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Options is the service configuration. Every field can be set by flag or by
// the matching SERVICE_* environment variable.
type Options struct {
	Port        int    `default:"8888"   help:"Port to listen on"                                        short:"p"`
	BaseURL     string `default:""       help:"Public base URL of short links (defaults to localhost)"`
	LogFormat   string `default:"json"   help:"Log format: json or console"`
	RedisAddr   string `default:""       help:"Redis server address; empty keeps state in memory"       short:"r"`
	Storage     string `default:"memory" help:"Link storage backend: memory or postgres"`
	DatabaseURL string `default:""       help:"Postgres connection string"`
	AutoMigrate bool   `default:"false"  help:"Apply the database schema on startup"`

	CacheTTL       int `default:"3600"  help:"Redis link cache TTL in seconds"`
	LocalCacheSize int `default:"10000" help:"In-process link cache entries; 0 disables"`

	Alphabet  string `default:""  help:"Short code alphabet; empty uses the built-in permutation"`
	MinLength int    `default:"6" help:"Minimum short code length"`

	QuotaLimit    int `default:"100" help:"Maximum links per owner; 0 disables"`
	CreateLimit   int `default:"40"  help:"Creates per owner per create window"`
	CreateWindow  int `default:"60"  help:"Create window in seconds"`
	ResolveLimit  int `default:"30"  help:"Resolves per IP per resolve window"`
	ResolveWindow int `default:"60"  help:"Resolve window in seconds"`
	LoginLimit    int `default:"5"   help:"Login attempts per email per login window"`
	LoginWindow   int `default:"60"  help:"Login window in seconds"`
	GlobalLimit   int `default:"0"   help:"Requests per IP per global window; 0 disables"`
	GlobalWindow  int `default:"60"  help:"Global window in seconds"`

	DNSTimeout int  `default:"2000"  help:"DNS lookup timeout in milliseconds"`
	TrustProxy bool `default:"false" help:"Take the client IP from X-Forwarded-For and X-Real-IP"`

	APITokens     string `default:""                   help:"Static API tokens as token=owner pairs, comma separated"`
	Users         string `default:""                   help:"Login users as email:bcrypt-hash pairs, comma separated"`
	SessionTTL    int    `default:"86400"              help:"Session lifetime in seconds"`
	ConsumerGroup string `default:"safelink-analytics" help:"Redis stream consumer group for analytics"`
}

// PublicBaseURL returns BaseURL or a localhost URL on Port.
func (o *Options) PublicBaseURL() string {
	if o.BaseURL != "" {
		return strings.TrimSuffix(o.BaseURL, "/")
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

// Policy builds the rate limit policy from the configured limits.
func (o *Options) Policy() *ratelimit.Policy {
	policy := &ratelimit.Policy{}

	policy.Set(ratelimit.ScopeCreate, limit(o.CreateLimit, o.CreateWindow))
	policy.Set(ratelimit.ScopeResolve, limit(o.ResolveLimit, o.ResolveWindow))
	policy.Set(ratelimit.ScopeLogin, limit(o.LoginLimit, o.LoginWindow))
	policy.Set(ratelimit.ScopeGlobal, limit(o.GlobalLimit, o.GlobalWindow))

	return policy
}

func limit(maxRequests, windowSeconds int) ratelimit.LimitConfig {
	return ratelimit.LimitConfig{
		Window: time.Duration(windowSeconds) * time.Second,
		Max:    int64(maxRequests),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
