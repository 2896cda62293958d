package icmp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

var (
	target4 = netip.MustParseAddr("192.0.2.10")
	target6 = netip.MustParseAddr("2001:db8::10")
)

func TestMatcher_EchoReply(t *testing.T) {
	m := matcher{target: target4, id: 7, seq: 42, privileged: true}

	ok, err := m.match(echoReply(t, ipv4.ICMPTypeEchoReply, 7, 42), target4)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = m.match(echoReply(t, ipv4.ICMPTypeEchoReply, 7, 43), target4)
	require.False(t, ok, "sequence mismatch")

	ok, _ = m.match(echoReply(t, ipv4.ICMPTypeEchoReply, 8, 42), target4)
	require.False(t, ok, "identifier mismatch")

	ok, _ = m.match(echoReply(t, ipv4.ICMPTypeEchoReply, 7, 42), netip.MustParseAddr("192.0.2.11"))
	require.False(t, ok, "peer mismatch")
}

func TestMatcher_DatagramIgnoresIdentifier(t *testing.T) {
	m := matcher{target: target4, id: 7, seq: 42}

	ok, err := m.match(echoReply(t, ipv4.ICMPTypeEchoReply, 31337, 42), target4)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMatcher_EchoReplyIPv6(t *testing.T) {
	m := matcher{target: target6, id: 7, seq: 42, privileged: true}

	ok, err := m.match(echoReply(t, ipv6.ICMPTypeEchoReply, 7, 42), target6)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMatcher_IgnoresOwnEchoRequest(t *testing.T) {
	m := matcher{target: target4, id: 7, seq: 42, privileged: true}

	req, err := newEchoRequest(target4, 7, 42)
	require.NoError(t, err)

	ok, err := m.match(req, target4)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatcher_IgnoresGarbage(t *testing.T) {
	m := matcher{target: target4, id: 7, seq: 42}

	ok, err := m.match([]byte{0x01}, target4)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatcher_DestinationUnreachableIPv4(t *testing.T) {
	m := matcher{target: target4, id: 7, seq: 42, privileged: true}

	req, err := newEchoRequest(target4, 7, 42)
	require.NoError(t, err)

	hdr := ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(req),
		TTL:      64,
		Protocol: 1,
		Src:      net.ParseIP("192.0.2.1").To4(),
		Dst:      net.IP(target4.AsSlice()),
	}

	quoted, err := hdr.Marshal()
	require.NoError(t, err)

	msg := unreachable(t, ipv4.ICMPTypeDestinationUnreachable, append(quoted, req[:8]...))

	ok, err := m.match(msg, netip.MustParseAddr("198.51.100.1"))
	require.True(t, ok)
	require.ErrorIs(t, err, ErrUnreachable)

	other := matcher{target: target4, id: 7, seq: 43, privileged: true}
	ok, err = other.match(msg, netip.MustParseAddr("198.51.100.1"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatcher_DestinationUnreachableIPv6(t *testing.T) {
	m := matcher{target: target6, id: 7, seq: 42}

	req, err := newEchoRequest(target6, 7, 42)
	require.NoError(t, err)

	quoted := make([]byte, 40, 48)
	quoted[0] = 6 << 4
	quoted[6] = 58
	quoted[7] = 64
	copy(quoted[8:24], netip.MustParseAddr("2001:db8::1").AsSlice())
	copy(quoted[24:40], target6.AsSlice())
	quoted = append(quoted, req[:8]...)

	ok, err := m.match(unreachable(t, ipv6.ICMPTypeDestinationUnreachable, quoted), netip.MustParseAddr("2001:db8::ffff"))
	require.True(t, ok)
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestPinger_Loopback(t *testing.T) {
	p := NewPinger(slog.New(slog.NewTextHandler(io.Discard, nil)), ModeAuto)

	err := p.Ping(t.Context(), netip.MustParseAddr("127.0.0.1"), time.Second)
	if errors.Is(err, ErrPermission) {
		t.Skip("ICMP sockets are not permitted in this environment")
	}

	require.NoError(t, err)
}

func TestPinger_CancelledContext(t *testing.T) {
	p := NewPinger(slog.New(slog.NewTextHandler(io.Discard, nil)), ModeAuto)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	// 192.0.2.0/24 is reserved for documentation and never answers.
	err := p.Ping(ctx, netip.MustParseAddr("192.0.2.1"), 5*time.Second)
	if errors.Is(err, ErrPermission) {
		t.Skip("ICMP sockets are not permitted in this environment")
	}

	require.Error(t, err)
}

func echoReply(t *testing.T, typ icmp.Type, id, seq int) []byte {
	t.Helper()

	b, err := (&icmp.Message{Type: typ, Body: &icmp.Echo{ID: id, Seq: seq, Data: payload}}).Marshal(nil)
	require.NoError(t, err)

	return b
}

func unreachable(t *testing.T, typ icmp.Type, data []byte) []byte {
	t.Helper()

	b, err := (&icmp.Message{Type: typ, Code: 1, Body: &icmp.DstUnreach{Data: data}}).Marshal(nil)
	require.NoError(t, err)

	return b
}
