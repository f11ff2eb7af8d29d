package urlsafety

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// DefaultLookupTimeout bounds a single DNS resolution performed by the validator.
const DefaultLookupTimeout = 2 * time.Second

// hostProfile maps hosts for lookup without STD3 or hyphen rules, which real
// DNS names such as my_service.example.com or r3---sn-x.googlevideo.com break.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
)

// Reason identifies why a URL was rejected.
type Reason string

const (
	ReasonInvalidFormat            Reason = "invalid_format"
	ReasonWrongScheme              Reason = "wrong_scheme"
	ReasonHasCredentials           Reason = "has_credentials"
	ReasonMissingHost              Reason = "missing_host"
	ReasonBlockedHost              Reason = "blocked_host"
	ReasonDNSResolutionFailed      Reason = "dns_resolution_failed"
	ReasonResolvedToBlockedAddress Reason = "resolved_to_blocked_address"
)

var reasonMessages = map[Reason]string{
	ReasonInvalidFormat:            "must be a valid URL",
	ReasonWrongScheme:              "must use HTTPS",
	ReasonHasCredentials:           "must not contain credentials",
	ReasonMissingHost:              "must have a valid host",
	ReasonBlockedHost:              "localhost is not allowed",
	ReasonDNSResolutionFailed:      "host could not be resolved",
	ReasonResolvedToBlockedAddress: "private or local IP addresses are not allowed",
}

// Message returns a human readable description of the reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}

	return string(r)
}

// ErrRejected is matched by every *ValidationError.
var ErrRejected = errors.New("url rejected")

// ValidationError describes a rejected URL.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "url " + e.Reason.Message()
	}

	return fmt.Sprintf("url %s: %s", e.Reason.Message(), e.Detail)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrRejected
}

// Outcome is the result of a single validation. The zero value is an accepted outcome.
type Outcome struct {
	Reason Reason
	Detail string
}

// Accepted reports whether the URL passed every check.
func (o Outcome) Accepted() bool {
	return o.Reason == ""
}

// Err returns nil for accepted outcomes and a *ValidationError otherwise.
func (o Outcome) Err() error {
	if o.Accepted() {
		return nil
	}

	return &ValidationError{Reason: o.Reason, Detail: o.Detail}
}

func reject(reason Reason, format string, args ...any) Outcome {
	return Outcome{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Resolver resolves a host name to every address it maps to.
type Resolver interface {
	LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error)
}

// NetResolver adapts net.Resolver to Resolver.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver creates a Resolver backed by r, or net.DefaultResolver when r is nil.
func NewNetResolver(r *net.Resolver) *NetResolver {
	if r == nil {
		r = net.DefaultResolver
	}

	return &NetResolver{resolver: r}
}

// LookupNetIP returns both A and AAAA answers for host.
func (n *NetResolver) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	return n.resolver.LookupNetIP(ctx, "ip", host)
}

// LookupObserver is notified after every DNS lookup.
type LookupObserver interface {
	ObserveLookup(elapsed time.Duration, err error)
}

// Option configures a Validator.
type Option func(*Validator)

// WithLookupTimeout overrides DefaultLookupTimeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithLookupObserver registers an observer for DNS lookups.
func WithLookupObserver(o LookupObserver) Option {
	return func(v *Validator) {
		v.observer = o
	}
}

// Validator decides whether a URL may be stored.
// It is stateless apart from its configuration and safe for concurrent use.
type Validator struct {
	resolver Resolver
	timeout  time.Duration
	observer LookupObserver
}

// NewValidator creates a Validator that resolves names through resolver.
func NewValidator(resolver Resolver, opts ...Option) *Validator {
	v := &Validator{
		resolver: resolver,
		timeout:  DefaultLookupTimeout,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Normalize trims surrounding whitespace from a submitted URL.
func Normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// Validate runs the checks in order and stops at the first failure.
// Network I/O only happens once every syntactic check has passed.
func (v *Validator) Validate(ctx context.Context, raw string) Outcome {
	u, outcome := parse(raw)
	if !outcome.Accepted() {
		return outcome
	}

	if u.Scheme != "https" {
		return reject(ReasonWrongScheme, "scheme %q", u.Scheme)
	}

	if u.User != nil {
		return reject(ReasonHasCredentials, "user info present")
	}

	host := u.Hostname()
	if host == "" {
		return reject(ReasonMissingHost, "empty host")
	}

	if isLocalhost(host) {
		return reject(ReasonBlockedHost, "host %q", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if r, blocked := Classify(addr); blocked {
			return reject(ReasonResolvedToBlockedAddress, "%s is %s", addr, r.Label)
		}

		return Outcome{}
	}

	return v.checkResolved(ctx, host)
}

func parse(raw string) (*url.URL, Outcome) {
	s := Normalize(raw)
	if s == "" {
		return nil, reject(ReasonInvalidFormat, "empty url")
	}

	for i := 0; i < len(s); i++ {
		if c := s[i]; c <= ' ' || c >= 0x7f {
			return nil, reject(ReasonInvalidFormat, "invalid character at offset %d", i)
		}
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, reject(ReasonInvalidFormat, "%v", err)
	}

	return u, Outcome{}
}

func isLocalhost(host string) bool {
	h := strings.TrimSuffix(strings.ToLower(host), ".")

	return h == "localhost" || strings.HasSuffix(h, ".localhost")
}

func (v *Validator) checkResolved(ctx context.Context, host string) Outcome {
	name, err := hostProfile.ToASCII(host)
	if err != nil {
		return reject(ReasonInvalidFormat, "host %q: %v", host, err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	addrs, err := v.resolver.LookupNetIP(lookupCtx, name)

	if v.observer != nil {
		v.observer.ObserveLookup(time.Since(start), err)
	}

	if err != nil {
		return reject(ReasonDNSResolutionFailed, "lookup %s: %v", name, err)
	}

	if len(addrs) == 0 {
		return reject(ReasonDNSResolutionFailed, "lookup %s: no addresses", name)
	}

	// Every answer is checked: a single internal address is enough to reject.
	for _, addr := range addrs {
		if r, blocked := Classify(addr); blocked {
			return reject(ReasonResolvedToBlockedAddress, "%s resolves to %s (%s)", name, addr, r.Label)
		}
	}

	return Outcome{}
}
