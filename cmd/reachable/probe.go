package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/khmm12/reachable"
	"github.com/khmm12/reachable/internal/adapter/mdns"
	"github.com/khmm12/reachable/internal/common/logging"
)

type Probe struct {
	Strategy       string        `name:"strategy" env:"PROBE_STRATEGY" default:"icmp" enum:"icmp,tcp" help:"How targets are probed: icmp echo or tcp connect."`
	Timeout        time.Duration `name:"timeout" env:"PROBE_TIMEOUT" default:"1s" help:"The maximum duration to wait for a single probe (e.g., 500ms, 2s)."`
	ResolveTimeout time.Duration `name:"resolve-timeout" env:"PROBE_RESOLVE_TIMEOUT" default:"5s" help:"The maximum duration to wait for name resolution."`
	ResolvePolicy  string        `name:"resolve-policy" env:"PROBE_RESOLVE_POLICY" default:"first" enum:"first,first-ipv4,first-ipv6,any,all,round-robin" help:"Which resolved addresses are probed (${enum})."`
	Concurrency    int           `name:"concurrency" env:"PROBE_CONCURRENCY" default:"16" help:"The maximum number of checks to run concurrently."`
	ICMPMode       string        `name:"icmp-mode" env:"PROBE_ICMP_MODE" default:"auto" enum:"auto,privileged,unprivileged" help:"ICMP socket kind: raw (privileged), datagram (unprivileged) or auto."`

	MDNS     bool   `name:"mdns" env:"PROBE_MDNS" default:"false" help:"Resolve .local names over multicast DNS."`
	UseIPv4  bool   `name:"mdns.ipv4" env:"PROBE_MDNS_USE_IPV4" default:"true" help:"Enable mDNS queries over IPv4."`
	IPv4Addr string `name:"mdns.ipv4.addr" env:"PROBE_MDNS_IPV4_ADDR" default:"224.0.0.0:5353" help:"IPv4 address to bind to for mDNS queries."`
	UseIPv6  bool   `name:"mdns.ipv6" env:"PROBE_MDNS_USE_IPV6" default:"true" help:"Enable mDNS queries over IPv6."`
	IPv6Addr string `name:"mdns.ipv6.addr" env:"PROBE_MDNS_IPV6_ADDR" default:"[FF02::]:5353" help:"IPv6 address to bind to for mDNS queries."`

	Targets []string `arg:"" name:"target" help:"Targets as host, host:port or [ipv6]:port. TCP targets require a port."`
}

func (p *Probe) validate() []error {
	var errs []error

	if p.Timeout <= 0 {
		errs = append(errs, errors.New("--timeout: must be greater than zero"))
	}

	if p.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("--resolve-timeout: must be greater than zero"))
	}

	if p.Concurrency <= 0 {
		errs = append(errs, errors.New("--concurrency: must be greater than zero"))
	}

	strategy, err := reachable.ParseStrategy(p.Strategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("--strategy: %w", err))
	}

	for _, spec := range p.Targets {
		if err == nil && !isTargetSpec(spec, strategy) {
			errs = append(errs, fmt.Errorf("target %q: must be a valid %s target", spec, strategy))
		}
	}

	if p.MDNS {
		if !p.UseIPv4 && !p.UseIPv6 {
			errs = append(errs, errors.New("at least one of --mdns.ipv4 or --mdns.ipv6 must be enabled"))
		}

		if p.UseIPv4 && !isUDP4AddrResolvable(p.IPv4Addr) {
			errs = append(errs, errors.New("--mdns.ipv4.addr: must be a valid UDP IPv4 address e.g. 224.0.0.0:5353"))
		}

		if p.UseIPv6 && !isUDP6AddrResolvable(p.IPv6Addr) {
			errs = append(errs, errors.New("--mdns.ipv6.addr: must be a valid UDP IPv6 address e.g. [FF02::]:5353"))
		}
	}

	return errs
}

// buildTargets parses every target with the probe options. The returned closer
// releases the mDNS sockets when mDNS is enabled.
func (p *Probe) buildTargets(logger *slog.Logger) ([]reachable.Target, io.Closer, error) {
	strategy, err := reachable.ParseStrategy(p.Strategy)
	if err != nil {
		return nil, nil, err
	}

	policy, err := reachable.ParseResolvePolicy(p.ResolvePolicy)
	if err != nil {
		return nil, nil, err
	}

	icmpMode, err := reachable.ParseICMPMode(p.ICMPMode)
	if err != nil {
		return nil, nil, err
	}

	var (
		resolver reachable.Resolver = net.DefaultResolver
		closer   io.Closer          = nopCloser{}
	)

	if p.MDNS {
		client, err := mdns.New(logger, mdns.Config{
			UseIPv4:     p.UseIPv4,
			UseIPv6:     p.UseIPv6,
			IPv4Addr:    p.IPv4Addr,
			IPv6Addr:    p.IPv6Addr,
			Concurrency: p.Concurrency,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create mdns client: %w", err)
		}

		resolver = mdns.NewResolver(logger, client, net.DefaultResolver)
		closer = client
	}

	opts := []reachable.Option{
		reachable.WithLogger(logger),
		reachable.WithTimeout(p.Timeout),
		reachable.WithResolveTimeout(p.ResolveTimeout),
		reachable.WithResolvePolicy(policy),
		reachable.WithResolver(resolver),
		reachable.WithICMPMode(icmpMode),
	}

	targets := make([]reachable.Target, 0, len(p.Targets))

	for _, spec := range p.Targets {
		t, err := reachable.ParseTarget(spec, strategy, opts...)
		if err != nil {
			_ = closer.Close()
			return nil, nil, err
		}

		targets = append(targets, t)
	}

	return targets, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}

func newLogger(w io.Writer, levelStr string) (*slog.Logger, error) {
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	return slog.New(logging.NewEnhancedHandler(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	)).With(logging.NewProgramAttr()), nil
}
