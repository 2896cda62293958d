package reachable

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"sync"
)

// Resolver looks up the addresses of a host. *net.Resolver implements it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// ResolvePolicy selects which resolved addresses are probed and how their
// results are folded into one Status.
type ResolvePolicy uint8

const (
	// ResolveFirst probes the first address in resolver order.
	ResolveFirst ResolvePolicy = iota
	// ResolveFirstIPv4 probes the first IPv4 address.
	ResolveFirstIPv4
	// ResolveFirstIPv6 probes the first IPv6 address.
	ResolveFirstIPv6
	// ResolveAny probes every address; the target is available if any responds.
	ResolveAny
	// ResolveAll probes every address; the target is available only if all respond.
	ResolveAll
	// ResolveRoundRobin probes one address, rotating the start on every call
	// for the same host.
	ResolveRoundRobin
)

var policyNames = map[ResolvePolicy]string{
	ResolveFirst:      "first",
	ResolveFirstIPv4:  "first-ipv4",
	ResolveFirstIPv6:  "first-ipv6",
	ResolveAny:        "any",
	ResolveAll:        "all",
	ResolveRoundRobin: "round-robin",
}

func (p ResolvePolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}

	return fmt.Sprintf("ResolvePolicy(%d)", uint8(p))
}

func ParseResolvePolicy(s string) (ResolvePolicy, error) {
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown resolve policy %q", s)
}

type successRule uint8

const (
	ruleSingle successRule = iota
	ruleAny
	ruleAll
)

func (p ResolvePolicy) rule() successRule {
	switch p {
	case ResolveAny:
		return ruleAny
	case ResolveAll:
		return ruleAll
	default:
		return ruleSingle
	}
}

func (p ResolvePolicy) network() string {
	switch p {
	case ResolveFirstIPv4:
		return "ip4"
	case ResolveFirstIPv6:
		return "ip6"
	default:
		return "ip"
	}
}

func (p ResolvePolicy) accepts(addr netip.Addr) bool {
	switch p {
	case ResolveFirstIPv4:
		return addr.Is4()
	case ResolveFirstIPv6:
		return addr.Is6()
	default:
		return true
	}
}

// Select applies the policy's ordering and subset rules to addrs, which must
// be in resolver order. It returns nil when no address qualifies.
func (p ResolvePolicy) Select(host FQHN, addrs []netip.Addr) []netip.Addr {
	var eligible []netip.Addr
	for _, a := range addrs {
		if p.accepts(a) {
			eligible = append(eligible, a)
		}
	}

	if len(eligible) == 0 {
		return nil
	}

	switch p {
	case ResolveAny, ResolveAll:
		return eligible
	case ResolveRoundRobin:
		i := rotations.next(host.String()) % uint64(len(eligible))
		return []netip.Addr{eligible[i]}
	default:
		return eligible[:1]
	}
}

var rotations = &rotation{counters: make(map[string]uint64)}

type rotation struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func (r *rotation) next(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.counters[key]
	r.counters[key] = n + 1

	return n
}

// Resolve looks host up and returns the addresses selected by policy. IP
// literals are returned without a lookup. Results are never cached.
func Resolve(ctx context.Context, r Resolver, host FQHN, policy ResolvePolicy) ([]netip.Addr, error) {
	var addrs []netip.Addr

	if addr, ok := host.Addr(); ok {
		addrs = []netip.Addr{addr}
	} else {
		found, err := r.LookupNetIP(ctx, policy.network(), host.String())
		if err != nil {
			return nil, &ResolveTargetError{Host: host.String(), Kind: classifyResolveError(ctx, err), Err: err}
		}

		addrs = normalizeAddrs(found)
	}

	selected := policy.Select(host, addrs)
	if len(selected) == 0 {
		return nil, &ResolveTargetError{Host: host.String(), Kind: ResolveNoAddresses}
	}

	return selected, nil
}

func normalizeAddrs(addrs []netip.Addr) []netip.Addr {
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		if !a.IsValid() {
			continue
		}

		if a.Is4In6() {
			a = a.Unmap()
		}

		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}

	return out
}

func classifyResolveError(ctx context.Context, err error) ResolveErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return ResolveNotFound
		case dnsErr.IsTimeout:
			return ResolveTimeout
		case dnsErr.IsTemporary:
			return ResolveTemporary
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ResolveTimeout
	}

	return ResolveFailed
}
