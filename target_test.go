package reachable

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mu      sync.Mutex
	results map[netip.Addr]error
	probed  []netip.Addr
}

func (p *fakeProber) Probe(_ context.Context, addr netip.Addr, _ Port, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.probed = append(p.probed, addr)

	return p.results[addr]
}

var (
	addrA = netip.MustParseAddr("192.0.2.1")
	addrB = netip.MustParseAddr("192.0.2.2")
)

func newFoldTarget(t *testing.T, policy ResolvePolicy, results map[netip.Addr]error) *TCPTarget {
	t.Helper()

	target, err := NewTCPTarget(
		MustParseFQHN("fold.example"),
		443,
		WithResolver(newFakeResolver(addrA.String(), addrB.String())),
		WithResolvePolicy(policy),
		WithProber(&fakeProber{results: results}),
	)
	require.NoError(t, err)

	return target
}

func TestCheckAvailability_AnySucceedsWhenOneAddressResponds(t *testing.T) {
	target := newFoldTarget(t, ResolveAny, map[netip.Addr]error{
		addrA: &CheckTargetError{Kind: CheckConnectionRefused, Addr: addrA},
	})

	status, err := target.CheckAvailability(t.Context())
	require.NoError(t, err)
	require.Equal(t, Available(), status)
}

func TestCheckAvailability_AllFailsWhenOneAddressFails(t *testing.T) {
	target := newFoldTarget(t, ResolveAll, map[netip.Addr]error{
		addrB: &CheckTargetError{Kind: CheckConnectionRefused, Addr: addrB},
	})

	status, err := target.CheckAvailability(t.Context())
	require.NoError(t, err)
	require.Equal(t, Unavailable(ReasonConnectionRefused), status)
}

func TestCheckAvailability_FailureReasonFollowsResolverOrder(t *testing.T) {
	target := newFoldTarget(t, ResolveAny, map[netip.Addr]error{
		addrA: &CheckTargetError{Kind: CheckTimeout, Addr: addrA},
		addrB: &CheckTargetError{Kind: CheckNoRoute, Addr: addrB},
	})

	status, err := target.CheckAvailability(t.Context())
	require.NoError(t, err)
	require.Equal(t, Unavailable(ReasonTimeout), status)
}

func TestCheckAvailability_AnyIgnoresPermissionDeniedWhenOneAddressResponds(t *testing.T) {
	target := newFoldTarget(t, ResolveAny, map[netip.Addr]error{
		addrB: &CheckTargetError{Kind: CheckPermissionDenied, Addr: addrB},
	})

	status, err := target.CheckAvailability(t.Context())
	require.NoError(t, err)
	require.Equal(t, Available(), status)
}

func TestCheckAvailability_PermissionDeniedWinsWhenNoAddressResponds(t *testing.T) {
	target := newFoldTarget(t, ResolveAny, map[netip.Addr]error{
		addrA: &CheckTargetError{Kind: CheckTimeout, Addr: addrA},
		addrB: &CheckTargetError{Kind: CheckPermissionDenied, Addr: addrB},
	})

	status, err := target.CheckAvailability(t.Context())
	require.ErrorIs(t, err, ErrPermissionDenied)
	require.Equal(t, Unavailable(ReasonPermissionDenied), status)
}

func TestCheckAvailability_AllReportsPermissionDenied(t *testing.T) {
	target := newFoldTarget(t, ResolveAll, map[netip.Addr]error{
		addrB: &CheckTargetError{Kind: CheckPermissionDenied, Addr: addrB},
	})

	status, err := target.CheckAvailability(t.Context())
	require.ErrorIs(t, err, ErrPermissionDenied)
	require.Equal(t, Unavailable(ReasonPermissionDenied), status)
}

func TestCheckAvailability_FirstProbesOneAddress(t *testing.T) {
	prober := &fakeProber{}

	target, err := NewICMPTarget(
		MustParseFQHN("first.example"),
		WithResolver(newFakeResolver(addrA.String(), addrB.String())),
		WithProber(prober),
	)
	require.NoError(t, err)

	status, err := target.CheckAvailability(t.Context())
	require.NoError(t, err)
	require.Equal(t, Available(), status)
	require.Equal(t, []netip.Addr{addrA}, prober.probed)
}

func TestCheckAvailability_ResolutionFailure(t *testing.T) {
	target, err := NewICMPTarget(
		MustParseFQHN("missing.example"),
		WithResolver(newFakeResolver()),
		WithProber(&fakeProber{}),
	)
	require.NoError(t, err)

	status, err := target.CheckAvailability(t.Context())
	require.ErrorIs(t, err, ErrResolve)
	require.Equal(t, Unavailable(ReasonResolutionFailure), status)
}

func TestCheckAvailability_CancelledContextIsUnknown(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	target := newFoldTarget(t, ResolveFirst, nil)

	status, err := target.CheckAvailability(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Unavailable(ReasonUnknown), status)
}

func TestCheckAvailability_ReportsPhases(t *testing.T) {
	var phases []Phase

	ctx := ContextWithPhaseObserver(t.Context(), func(p Phase) {
		phases = append(phases, p)
	})

	target := newFoldTarget(t, ResolveFirst, nil)

	_, err := target.CheckAvailability(ctx)
	require.NoError(t, err)
	require.Equal(t, []Phase{PhaseResolving, PhaseProbing}, phases)
}

func TestParseTarget(t *testing.T) {
	tcp, err := ParseTarget("Example.com:443", StrategyTCP)
	require.NoError(t, err)
	require.Equal(t, "example.com:443", tcp.ID())
	require.Equal(t, Key{Host: "example.com", Port: 443, Strategy: StrategyTCP}, tcp.Key())
	require.Equal(t, "tcp://example.com:443", tcp.Key().String())

	icmp, err := ParseTarget("2001:db8::1", StrategyICMP)
	require.NoError(t, err)
	require.Equal(t, "icmp://2001:db8::1", icmp.Key().String())

	_, err = ParseTarget("example.com:443", StrategyICMP)
	require.Error(t, err)

	_, err = ParseTarget("example.com", StrategyTCP)
	require.Error(t, err)
}

func TestNewTarget_Options(t *testing.T) {
	target, err := NewTCPTarget(MustParseFQHN("example.com"), 80,
		WithTimeout(250*time.Millisecond),
		WithTimeout(0),
		WithResolvePolicy(ResolveRoundRobin),
	)
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, target.Timeout())
	require.Equal(t, ResolveRoundRobin, target.ResolvePolicy())
	require.Equal(t, StrategyTCP, target.Strategy())
	require.Equal(t, Port(80), target.Port())

	_, err = NewTCPTarget(MustParseFQHN("example.com"), 0)
	require.Error(t, err)

	_, err = NewICMPTarget(FQHN{})
	require.Error(t, err)
}
