package ratelimit

import "time"

// Scope categorizes a request for rate limiting purposes.
// Each scope keeps its own counters, even for the same identity.
type Scope string

const (
	// ScopeGlobal applies to every request from a client IP.
	ScopeGlobal Scope = "global"
	// ScopeCreate applies to link creation, keyed by the authenticated owner.
	ScopeCreate Scope = "create"
	// ScopeResolve applies to code resolution, keyed by the caller IP.
	ScopeResolve Scope = "resolve"
	// ScopeLogin applies to login attempts, keyed by the submitted email address.
	ScopeLogin Scope = "login"
)

// LimitConfig defines the maximum number of requests allowed in one fixed window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps each scope to the limits enforced for it.
// A scope with several limits is admitted only when every window has room.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy returns the limits used when nothing is configured.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeCreate:  {{Window: time.Minute, Max: 40}},
			ScopeResolve: {{Window: time.Minute, Max: 30}},
			ScopeLogin:   {{Window: time.Minute, Max: 5}},
		},
	}
}

// Set replaces the limits of a scope. Non-positive limits remove the scope.
func (p *Policy) Set(scope Scope, limits ...LimitConfig) {
	if p.Limits == nil {
		p.Limits = make(map[Scope][]LimitConfig)
	}

	valid := make([]LimitConfig, 0, len(limits))

	for _, l := range limits {
		if l.Max > 0 && l.Window > 0 {
			valid = append(valid, l)
		}
	}

	if len(valid) == 0 {
		delete(p.Limits, scope)

		return
	}

	p.Limits[scope] = valid
}
