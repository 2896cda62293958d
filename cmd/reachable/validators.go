package main

import (
	"net"
	"net/netip"

	"github.com/khmm12/reachable"
	"github.com/khmm12/reachable/internal/common/logging"
)

func isUDP4AddrResolvable(val string) bool {
	if !isIP4Addr(val) {
		return false
	}

	_, err := net.ResolveUDPAddr("udp4", val)

	return err == nil
}

func isUDP6AddrResolvable(val string) bool {
	if !isIP6Addr(val) {
		return false
	}

	_, err := net.ResolveUDPAddr("udp6", val)

	return err == nil
}

func isIP4Addr(val string) bool {
	ap, err := netip.ParseAddrPort(val)
	return err == nil && ap.Addr().Is4()
}

func isIP6Addr(val string) bool {
	ap, err := netip.ParseAddrPort(val)
	return err == nil && ap.Addr().Is6() && !ap.Addr().Is4In6()
}

func isTCPAddr(val string) bool {
	if !isIP4Addr(val) && !isIP6Addr(val) {
		return false
	}

	_, err := net.ResolveTCPAddr("tcp", val)

	return err == nil
}

func isLogLevel(val string) bool {
	_, err := logging.ParseLevel(val)
	return err == nil
}

func isTargetSpec(spec string, strategy reachable.Strategy) bool {
	_, err := reachable.ParseTarget(spec, strategy)
	return err == nil
}
