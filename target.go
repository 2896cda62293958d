package reachable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"
)

type Strategy uint8

const (
	StrategyICMP Strategy = iota
	StrategyTCP
)

func (s Strategy) String() string {
	switch s {
	case StrategyICMP:
		return "icmp"
	case StrategyTCP:
		return "tcp"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "icmp":
		return StrategyICMP, nil
	case "tcp":
		return StrategyTCP, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}

// Key identifies a target for deduplication.
type Key struct {
	Host     string
	Port     Port
	Strategy Strategy
}

func (k Key) String() string {
	return k.Strategy.String() + "://" + NewAddress(FQHN{name: k.Host}, k.Port).String()
}

// Target is a host bound to a probe strategy. Targets are immutable; checking
// one only produces new Status values.
type Target interface {
	// ID returns the normalized host[:port] form.
	ID() string
	Key() Key
	// CheckAvailability resolves the host, probes the selected addresses and
	// folds the results into one Status. It blocks until done, bounded by the
	// configured timeouts, and never retries. The Status is valid even when an
	// error is returned.
	CheckAvailability(ctx context.Context) (Status, error)
}

var (
	_ Target = (*ICMPTarget)(nil)
	_ Target = (*TCPTarget)(nil)
)

// ParseTarget parses spec and binds it to strategy.
func ParseTarget(spec string, strategy Strategy, opts ...Option) (Target, error) {
	switch strategy {
	case StrategyICMP:
		t, err := ParseICMPTarget(spec, opts...)
		if err != nil {
			return nil, err
		}

		return t, nil
	case StrategyTCP:
		t, err := ParseTCPTarget(spec, opts...)
		if err != nil {
			return nil, err
		}

		return t, nil
	default:
		return nil, parseError(spec, "unknown strategy "+strategy.String(), nil)
	}
}

type ICMPTarget struct {
	checker
}

func NewICMPTarget(host FQHN, opts ...Option) (*ICMPTarget, error) {
	if host.IsZero() {
		return nil, parseError("", "empty host", nil)
	}

	cfg := newConfig(opts)
	if cfg.prober == nil {
		cfg.prober = NewICMPProber(cfg.logger, cfg.icmpMode)
	}

	return &ICMPTarget{checker{addr: NewAddress(host, 0), strategy: StrategyICMP, cfg: cfg}}, nil
}

// ParseICMPTarget parses a host specification. ICMP has no ports, so a spec
// with a port is rejected.
func ParseICMPTarget(spec string, opts ...Option) (*ICMPTarget, error) {
	addr, err := ParseAddress(spec)
	if err != nil {
		return nil, err
	}

	if addr.Port().IsSet() {
		return nil, parseError(spec, "icmp target does not take a port", nil)
	}

	return NewICMPTarget(addr.Host(), opts...)
}

type TCPTarget struct {
	checker
}

func NewTCPTarget(host FQHN, port Port, opts ...Option) (*TCPTarget, error) {
	if host.IsZero() {
		return nil, parseError("", "empty host", nil)
	}

	if !port.IsSet() {
		return nil, parseError(host.String(), "tcp target requires a port", nil)
	}

	cfg := newConfig(opts)
	if cfg.prober == nil {
		cfg.prober = NewTCPProber()
	}

	return &TCPTarget{checker{addr: NewAddress(host, port), strategy: StrategyTCP, cfg: cfg}}, nil
}

func ParseTCPTarget(spec string, opts ...Option) (*TCPTarget, error) {
	addr, err := ParseAddress(spec)
	if err != nil {
		return nil, err
	}

	if !addr.Port().IsSet() {
		return nil, parseError(spec, "tcp target requires a port", nil)
	}

	return NewTCPTarget(addr.Host(), addr.Port(), opts...)
}

func (t *TCPTarget) Port() Port {
	return t.addr.Port()
}

// checker carries the state shared by every strategy.
type checker struct {
	addr     Address
	strategy Strategy
	cfg      config
}

func (c *checker) ID() string {
	return c.addr.String()
}

func (c *checker) Key() Key {
	return Key{Host: c.addr.Host().String(), Port: c.addr.Port(), Strategy: c.strategy}
}

func (c *checker) Host() FQHN {
	return c.addr.Host()
}

func (c *checker) Strategy() Strategy {
	return c.strategy
}

func (c *checker) ResolvePolicy() ResolvePolicy {
	return c.cfg.policy
}

func (c *checker) Timeout() time.Duration {
	return c.cfg.timeout
}

func (c *checker) CheckAvailability(ctx context.Context) (Status, error) {
	start := time.Now()

	status, err := c.check(ctx)

	c.cfg.logger.DebugContext(ctx, "Check finished",
		slog.String("target", c.ID()),
		slog.String("strategy", c.strategy.String()),
		slog.String("status", status.String()),
		slog.Duration("duration", time.Since(start)),
		slog.Any("error", err),
	)

	return status, err
}

func (c *checker) check(ctx context.Context) (Status, error) {
	notifyPhase(ctx, PhaseResolving)

	rctx, cancel := context.WithTimeout(ctx, c.cfg.resolveTimeout)
	addrs, err := Resolve(rctx, c.cfg.resolver, c.addr.Host(), c.cfg.policy)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return Unavailable(ReasonUnknown), fmt.Errorf("check %s: %w", c.ID(), ctx.Err())
		}

		return Unavailable(ReasonResolutionFailure), &CheckTargetError{Kind: CheckResolve, Err: err}
	}

	notifyPhase(ctx, PhaseProbing)

	return foldProbes(ctx, c.cfg.prober, addrs, c.addr.Port(), c.cfg.timeout, c.cfg.policy.rule())
}

// foldProbes probes every address and folds the outcomes under rule. Failures
// are reported with the reason of the first failing address in resolver order,
// except that a permission failure on any address wins once the rule has not
// been met.
func foldProbes(ctx context.Context, prober Prober, addrs []netip.Addr, port Port, timeout time.Duration, rule successRule) (Status, error) {
	errs := make([]error, len(addrs))

	if len(addrs) == 1 {
		errs[0] = prober.Probe(ctx, addrs[0], port, timeout)
	} else {
		var g errgroup.Group

		for i, addr := range addrs {
			g.Go(func() error {
				errs[i] = prober.Probe(ctx, addr, port, timeout)
				return nil
			})
		}

		_ = g.Wait()
	}

	if ctx.Err() != nil {
		return Unavailable(ReasonUnknown), ctx.Err()
	}

	var (
		firstErr error
		ok       int
	)

	for _, err := range errs {
		if err == nil {
			ok++
		} else if firstErr == nil {
			firstErr = err
		}
	}

	if (rule == ruleAny && ok > 0) || firstErr == nil {
		return Available(), nil
	}

	for _, err := range errs {
		if errors.Is(err, ErrPermissionDenied) {
			return Unavailable(ReasonPermissionDenied), err
		}
	}

	return statusForProbeError(firstErr)
}

// statusForProbeError splits probe failures into observations about the remote
// host, reported only through the Status, and local failures, which are also
// returned as errors.
func statusForProbeError(err error) (Status, error) {
	var cerr *CheckTargetError
	if !errors.As(err, &cerr) {
		return Unavailable(ReasonUnknown), err
	}

	switch cerr.Kind {
	case CheckTimeout, CheckConnectionRefused, CheckNoRoute:
		return Unavailable(cerr.Kind.Reason()), nil
	default:
		return Unavailable(cerr.Kind.Reason()), cerr
	}
}

type Phase uint8

const (
	PhaseResolving Phase = iota
	PhaseProbing
)

type phaseObserverKey struct{}

// ContextWithPhaseObserver returns a context that makes CheckAvailability
// report each phase it enters to fn.
func ContextWithPhaseObserver(ctx context.Context, fn func(Phase)) context.Context {
	return context.WithValue(ctx, phaseObserverKey{}, fn)
}

func notifyPhase(ctx context.Context, p Phase) {
	if fn, ok := ctx.Value(phaseObserverKey{}).(func(Phase)); ok && fn != nil {
		fn(p)
	}
}
