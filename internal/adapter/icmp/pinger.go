package icmp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

var (
	ErrPermission  = errors.New("icmp: socket creation not permitted")
	ErrTimeout     = errors.New("icmp: no echo reply before deadline")
	ErrUnreachable = errors.New("icmp: destination unreachable")
)

type Mode uint8

const (
	ModeAuto Mode = iota
	ModePrivileged
	ModeUnprivileged
)

var (
	sequence atomic.Uint32
	payload  = []byte("reachable-echo")
)

// Pinger sends single ICMP echo requests. Each Ping opens its own socket, so
// concurrent pings and other ICMP users in the process never share state;
// replies are matched by peer, sequence and (on raw sockets) identifier.
type Pinger struct {
	logger *slog.Logger
	mode   Mode
	id     int
}

func NewPinger(logger *slog.Logger, mode Mode) *Pinger {
	return &Pinger{
		logger: logger,
		mode:   mode,
		id:     os.Getpid() & 0xffff,
	}
}

func (p *Pinger) Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) error {
	addr = addr.Unmap()

	conn, privileged, err := p.listen(addr)
	if err != nil {
		return err
	}

	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("icmp: failed to set deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	seq := int(uint16(sequence.Add(1)))

	req, err := newEchoRequest(addr, p.id, seq)
	if err != nil {
		return err
	}

	start := time.Now()

	if _, err := conn.WriteTo(req, destination(addr, privileged)); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %w", ErrPermission, err)
		}

		return fmt.Errorf("icmp: failed to send echo request: %w", err)
	}

	buf := make([]byte, 1500)

	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return ErrTimeout
			}

			return fmt.Errorf("icmp: failed to read reply: %w", err)
		}

		m := matcher{
			target:     addr,
			id:         p.id,
			seq:        seq,
			privileged: privileged,
		}

		matched, rerr := m.match(buf[:n], peerAddr(peer))
		if !matched {
			continue
		}

		p.logger.DebugContext(ctx, "ICMP reply received",
			slog.String("addr", addr.String()),
			slog.Int("seq", seq),
			slog.Duration("rtt", time.Since(start)),
			slog.Bool("unreachable", rerr != nil),
		)

		return rerr
	}
}

func (p *Pinger) listen(addr netip.Addr) (*icmp.PacketConn, bool, error) {
	switch p.mode {
	case ModePrivileged:
		conn, err := listen(addr, true)
		return conn, true, err
	case ModeUnprivileged:
		conn, err := listen(addr, false)
		return conn, false, err
	}

	conn, err := listen(addr, true)
	if err == nil {
		return conn, true, nil
	}

	if !errors.Is(err, ErrPermission) {
		return nil, false, err
	}

	p.logger.Debug("Raw ICMP socket not permitted, falling back to datagram socket", slog.Any("error", err))

	conn, err = listen(addr, false)

	return conn, false, err
}

func listen(addr netip.Addr, privileged bool) (*icmp.PacketConn, error) {
	var network, laddr string

	switch {
	case addr.Is4() && privileged:
		network, laddr = "ip4:icmp", "0.0.0.0"
	case addr.Is4():
		network, laddr = "udp4", "0.0.0.0"
	case privileged:
		network, laddr = "ip6:ipv6-icmp", "::"
	default:
		network, laddr = "udp6", "::"
	}

	conn, err := icmp.ListenPacket(network, laddr)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %w", ErrPermission, network, err)
		}

		return nil, fmt.Errorf("icmp: failed to listen on %s: %w", network, err)
	}

	return conn, nil
}

func newEchoRequest(addr netip.Addr, id, seq int) ([]byte, error) {
	var typ icmp.Type = ipv4.ICMPTypeEcho
	if addr.Is6() {
		typ = ipv6.ICMPTypeEchoRequest
	}

	msg := icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: payload},
	}

	b, err := msg.Marshal(nil)
	if err != nil {
		return nil, fmt.Errorf("icmp: failed to marshal echo request: %w", err)
	}

	return b, nil
}

func destination(addr netip.Addr, privileged bool) net.Addr {
	ip := net.IP(addr.AsSlice())
	if privileged {
		return &net.IPAddr{IP: ip, Zone: addr.Zone()}
	}

	return &net.UDPAddr{IP: ip, Zone: addr.Zone()}
}

func peerAddr(a net.Addr) netip.Addr {
	var ip net.IP

	switch v := a.(type) {
	case *net.IPAddr:
		ip = v.IP
	case *net.UDPAddr:
		ip = v.IP
	default:
		return netip.Addr{}
	}

	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}

	return addr.Unmap()
}
