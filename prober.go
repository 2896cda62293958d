package reachable

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"syscall"
	"time"

	"github.com/khmm12/reachable/internal/adapter/icmp"
)

// Prober checks whether one address responds. Implementations return nil or
// a *CheckTargetError and must never block longer than timeout.
type Prober interface {
	Probe(ctx context.Context, addr netip.Addr, port Port, timeout time.Duration) error
}

var (
	_ Prober = (*TCPProber)(nil)
	_ Prober = (*ICMPProber)(nil)
)

type TCPProber struct{}

func NewTCPProber() *TCPProber {
	return &TCPProber{}
}

// Probe connects to addr:port. An established connection means reachable and
// is closed right away.
func (p *TCPProber) Probe(ctx context.Context, addr netip.Addr, port Port, timeout time.Duration) error {
	if !port.IsSet() {
		return &CheckTargetError{Kind: CheckFailed, Addr: addr, Err: errors.New("tcp probe requires a port")}
	}

	dialer := &net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", netip.AddrPortFrom(addr, uint16(port)).String())
	if err != nil {
		return &CheckTargetError{Kind: classifyNetError(err), Addr: addr, Err: err}
	}

	_ = conn.Close()

	return nil
}

type ICMPMode uint8

const (
	// ICMPAuto tries a raw socket first and falls back to a datagram ICMP
	// socket when raw sockets are not permitted.
	ICMPAuto ICMPMode = iota
	ICMPPrivileged
	ICMPUnprivileged
)

func (m ICMPMode) String() string {
	switch m {
	case ICMPPrivileged:
		return "privileged"
	case ICMPUnprivileged:
		return "unprivileged"
	default:
		return "auto"
	}
}

func ParseICMPMode(s string) (ICMPMode, error) {
	for _, m := range []ICMPMode{ICMPAuto, ICMPPrivileged, ICMPUnprivileged} {
		if m.String() == s {
			return m, nil
		}
	}

	return 0, errors.New("unknown icmp mode " + s)
}

func (m ICMPMode) adapter() icmp.Mode {
	switch m {
	case ICMPPrivileged:
		return icmp.ModePrivileged
	case ICMPUnprivileged:
		return icmp.ModeUnprivileged
	default:
		return icmp.ModeAuto
	}
}

type ICMPProber struct {
	pinger *icmp.Pinger
}

func NewICMPProber(logger *slog.Logger, mode ICMPMode) *ICMPProber {
	return &ICMPProber{pinger: icmp.NewPinger(logger, mode.adapter())}
}

// Probe sends one echo request to addr and waits for the matching reply. The
// port is ignored.
func (p *ICMPProber) Probe(ctx context.Context, addr netip.Addr, _ Port, timeout time.Duration) error {
	err := p.pinger.Ping(ctx, addr, timeout)
	if err == nil {
		return nil
	}

	var kind CheckErrorKind

	switch {
	case errors.Is(err, icmp.ErrPermission):
		kind = CheckPermissionDenied
	case errors.Is(err, icmp.ErrTimeout):
		kind = CheckTimeout
	case errors.Is(err, icmp.ErrUnreachable):
		kind = CheckNoRoute
	default:
		kind = classifyNetError(err)
	}

	return &CheckTargetError{Kind: kind, Addr: addr, Err: err}
}

func classifyNetError(err error) CheckErrorKind {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET:
			return CheckConnectionRefused
		case syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.EHOSTDOWN, syscall.ENETDOWN:
			return CheckNoRoute
		case syscall.EACCES, syscall.EPERM:
			return CheckPermissionDenied
		case syscall.ETIMEDOUT:
			return CheckTimeout
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return CheckTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CheckTimeout
	}

	return CheckFailed
}
