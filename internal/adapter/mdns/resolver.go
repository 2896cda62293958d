package mdns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"

	"golang.org/x/net/dns/dnsmessage"

	"github.com/khmm12/reachable"
)

const localSuffix = ".local"

type querier interface {
	QueryAddr(ctx context.Context, name string) (dnsmessage.ResourceHeader, netip.Addr, error)
}

var _ reachable.Resolver = (*Resolver)(nil)

// Resolver answers .local names over multicast DNS and hands every other name
// to the fallback resolver.
type Resolver struct {
	logger   *slog.Logger
	client   querier
	acquire  func(ctx context.Context) (func(), error)
	fallback reachable.Resolver
}

func NewResolver(logger *slog.Logger, client *Client, fallback reachable.Resolver) *Resolver {
	acquire := func(ctx context.Context) (func(), error) {
		if err := client.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}

		return func() { client.sem.Release(1) }, nil
	}

	return newResolver(logger, client.conn, acquire, fallback)
}

func newResolver(logger *slog.Logger, q querier, acquire func(ctx context.Context) (func(), error), fallback reachable.Resolver) *Resolver {
	if fallback == nil {
		fallback = net.DefaultResolver
	}

	return &Resolver{
		logger:   logger,
		client:   q,
		acquire:  acquire,
		fallback: fallback,
	}
}

func (r *Resolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	name := strings.TrimSuffix(strings.ToLower(host), ".")
	if !strings.HasSuffix(name, localSuffix) {
		return r.fallback.LookupNetIP(ctx, network, host)
	}

	release, err := r.acquire(ctx)
	if err != nil {
		return nil, timeoutError(host, err)
	}

	defer release()

	// pion answers with the first address record it sees, so a family
	// mismatch is reported as not found instead of being retried.
	_, addr, err := r.client.QueryAddr(ctx, name)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, timeoutError(host, err)
		}

		return nil, &net.DNSError{Err: err.Error(), Name: host}
	}

	addr = addr.Unmap()

	r.logger.DebugContext(ctx, "Resolved mdns name", slog.String("host", name), slog.String("addr", addr.String()))

	if !matchesNetwork(network, addr) {
		return nil, &net.DNSError{
			Err:        fmt.Sprintf("no %s address for mdns name", network),
			Name:       host,
			IsNotFound: true,
		}
	}

	return []netip.Addr{addr}, nil
}

func matchesNetwork(network string, addr netip.Addr) bool {
	switch network {
	case "ip4":
		return addr.Is4()
	case "ip6":
		return addr.Is6()
	default:
		return addr.IsValid()
	}
}

func timeoutError(host string, err error) *net.DNSError {
	return &net.DNSError{Err: err.Error(), Name: host, IsTimeout: true}
}
