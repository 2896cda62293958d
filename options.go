package reachable

import (
	"log/slog"
	"net"
	"time"
)

const (
	DefaultTimeout        = 1 * time.Second
	DefaultResolveTimeout = 5 * time.Second
)

type config struct {
	timeout        time.Duration
	resolveTimeout time.Duration
	policy         ResolvePolicy
	resolver       Resolver
	prober         Prober
	logger         *slog.Logger
	icmpMode       ICMPMode
}

// Option configures a target.
type Option func(*config)

// WithTimeout bounds each probe. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithResolveTimeout bounds name resolution. Non-positive values are ignored.
func WithResolveTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.resolveTimeout = timeout
		}
	}
}

func WithResolvePolicy(policy ResolvePolicy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

func WithResolver(r Resolver) Option {
	return func(c *config) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithProber replaces the strategy's default prober.
func WithProber(p Prober) Option {
	return func(c *config) {
		c.prober = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithICMPMode selects the socket kind used by ICMP targets.
func WithICMPMode(mode ICMPMode) Option {
	return func(c *config) {
		c.icmpMode = mode
	}
}

func newConfig(opts []Option) config {
	c := config{
		timeout:        DefaultTimeout,
		resolveTimeout: DefaultResolveTimeout,
		policy:         ResolveFirst,
		resolver:       net.DefaultResolver,
		logger:         slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}
