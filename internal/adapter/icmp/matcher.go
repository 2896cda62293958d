package icmp

import (
	"encoding/binary"
	"net/netip"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	ipv4HeaderMinLen = 20
	ipv6HeaderLen    = 40
	echoHeaderLen    = 8
)

// matcher decides whether a received ICMP message answers one echo request.
// Datagram sockets get their identifier rewritten by the kernel, so the
// identifier is only compared on raw sockets.
type matcher struct {
	target     netip.Addr
	id         int
	seq        int
	privileged bool
}

// match reports whether b answers the request. A matching Destination
// Unreachable yields ErrUnreachable.
func (m matcher) match(b []byte, peer netip.Addr) (bool, error) {
	proto := ipv4.ICMPTypeEchoReply.Protocol()
	if m.target.Is6() {
		proto = ipv6.ICMPTypeEchoReply.Protocol()
	}

	msg, err := icmp.ParseMessage(proto, b)
	if err != nil {
		return false, nil
	}

	switch msg.Type {
	case ipv4.ICMPTypeEchoReply, ipv6.ICMPTypeEchoReply:
		echo, ok := msg.Body.(*icmp.Echo)
		if !ok || peer.WithZone("") != m.target.WithZone("") {
			return false, nil
		}

		return m.matchEcho(echo.ID, echo.Seq), nil
	case ipv4.ICMPTypeDestinationUnreachable, ipv6.ICMPTypeDestinationUnreachable:
		du, ok := msg.Body.(*icmp.DstUnreach)
		if !ok {
			return false, nil
		}

		dst, id, seq, ok := quotedEcho(du.Data)
		if !ok || dst.WithZone("") != m.target.WithZone("") || !m.matchEcho(id, seq) {
			return false, nil
		}

		return true, ErrUnreachable
	}

	return false, nil
}

func (m matcher) matchEcho(id, seq int) bool {
	if seq != m.seq {
		return false
	}

	return !m.privileged || id == m.id
}

// quotedEcho extracts the destination, identifier and sequence of the echo
// request quoted in an ICMP error message.
func quotedEcho(data []byte) (netip.Addr, int, int, bool) {
	if len(data) < 1 {
		return netip.Addr{}, 0, 0, false
	}

	var (
		dst  netip.Addr
		body []byte
	)

	switch data[0] >> 4 {
	case 4:
		hl := int(data[0]&0x0f) * 4
		if hl < ipv4HeaderMinLen || len(data) < hl+echoHeaderLen || data[9] != byte(ipv4.ICMPTypeEcho.Protocol()) {
			return netip.Addr{}, 0, 0, false
		}

		dst = netip.AddrFrom4([4]byte(data[16:20]))
		body = data[hl:]

		if body[0] != byte(ipv4.ICMPTypeEcho) {
			return netip.Addr{}, 0, 0, false
		}
	case 6:
		if len(data) < ipv6HeaderLen+echoHeaderLen || data[6] != byte(ipv6.ICMPTypeEchoRequest.Protocol()) {
			return netip.Addr{}, 0, 0, false
		}

		dst = netip.AddrFrom16([16]byte(data[24:40]))
		body = data[ipv6HeaderLen:]

		if body[0] != byte(ipv6.ICMPTypeEchoRequest) {
			return netip.Addr{}, 0, 0, false
		}
	default:
		return netip.Addr{}, 0, 0, false
	}

	id := int(binary.BigEndian.Uint16(body[4:6]))
	seq := int(binary.BigEndian.Uint16(body[6:8]))

	return dst, id, seq, true
}
