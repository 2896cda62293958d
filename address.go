package reachable

import (
	"net"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(true),
	idna.VerifyDNSLength(true),
)

// FQHN is a validated host identifier: a DNS name or an IP literal. Names are
// stored in their lower-case ASCII form without the trailing root dot.
type FQHN struct {
	name string
	addr netip.Addr
}

// ParseFQHN validates s as a host name or IP literal. It performs no I/O.
func ParseFQHN(s string) (FQHN, error) {
	h, reason, err := parseHost(s)
	if reason != "" {
		return FQHN{}, parseError(s, reason, err)
	}

	return h, nil
}

// MustParseFQHN is like ParseFQHN but panics on error.
func MustParseFQHN(s string) FQHN {
	h, err := ParseFQHN(s)
	if err != nil {
		panic(err)
	}

	return h
}

func parseHost(s string) (FQHN, string, error) {
	if s == "" {
		return FQHN{}, "empty host", nil
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return FQHN{name: addr.String(), addr: addr}, "", nil
	}

	name := strings.TrimSuffix(s, ".")
	if name == "" {
		return FQHN{}, "empty host", nil
	}

	ascii, err := hostProfile.ToASCII(name)
	if err != nil {
		return FQHN{}, "invalid host name", err
	}

	ascii = strings.ToLower(ascii)

	labels := strings.Split(ascii, ".")
	for _, label := range labels {
		if reason := checkLabel(label); reason != "" {
			return FQHN{}, reason, nil
		}
	}

	if isNumeric(labels[len(labels)-1]) {
		return FQHN{}, "numeric top-level label", nil
	}

	return FQHN{name: ascii}, "", nil
}

func checkLabel(label string) string {
	switch {
	case label == "":
		return "empty label"
	case len(label) > 63:
		return "label longer than 63 octets"
	case label[0] == '-' || label[len(label)-1] == '-':
		return "label starts or ends with a hyphen"
	}

	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return "invalid character in label"
		}
	}

	return ""
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return s != ""
}

func (h FQHN) String() string {
	return h.name
}

func (h FQHN) IsZero() bool {
	return h.name == ""
}

func (h FQHN) IsIP() bool {
	return h.addr.IsValid()
}

// Addr returns the literal address when the host is an IP literal.
func (h FQHN) Addr() (netip.Addr, bool) {
	return h.addr, h.addr.IsValid()
}

// Port is a TCP port. The zero value means "no port".
type Port uint16

// ParsePort parses a decimal port in 1..65535.
func ParsePort(s string) (Port, error) {
	p, reason, err := parsePort(s)
	if reason != "" {
		return 0, parseError(s, reason, err)
	}

	return p, nil
}

func parsePort(s string) (Port, string, error) {
	if s == "" {
		return 0, "empty port", nil
	}

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, "invalid port", err
	}

	if n == 0 {
		return 0, "port must be in 1..65535", nil
	}

	return Port(n), "", nil
}

// IsSet reports whether a port was given.
func (p Port) IsSet() bool {
	return p != 0
}

func (p Port) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// Address is a parsed host[:port] specification.
type Address struct {
	host FQHN
	port Port
}

// NewAddress pairs host with port. A zero port means none.
func NewAddress(host FQHN, port Port) Address {
	return Address{host: host, port: port}
}

// ParseAddress parses host, host:port, [v6] or [v6]:port. IPv6 literals must
// be bracketed when a port follows. It performs no I/O.
func ParseAddress(spec string) (Address, error) {
	if spec == "" {
		return Address{}, parseError(spec, "empty specification", nil)
	}

	hostPart, portPart, hasPort, reason := splitSpec(spec)
	if reason != "" {
		return Address{}, parseError(spec, reason, nil)
	}

	host, reason, err := parseHost(hostPart)
	if reason != "" {
		return Address{}, parseError(spec, reason, err)
	}

	var port Port
	if hasPort {
		port, reason, err = parsePort(portPart)
		if reason != "" {
			return Address{}, parseError(spec, reason, err)
		}
	}

	return Address{host: host, port: port}, nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(spec string) Address {
	a, err := ParseAddress(spec)
	if err != nil {
		panic(err)
	}

	return a
}

func splitSpec(spec string) (host, port string, hasPort bool, reason string) {
	if strings.HasPrefix(spec, "[") {
		end := strings.IndexByte(spec, ']')
		if end < 0 {
			return "", "", false, "missing closing bracket"
		}

		host = spec[1:end]
		if addr, err := netip.ParseAddr(host); err != nil || !addr.Is6() {
			return "", "", false, "bracketed host must be an IPv6 literal"
		}

		rest := spec[end+1:]
		switch {
		case rest == "":
			return host, "", false, ""
		case rest[0] == ':':
			return host, rest[1:], true, ""
		default:
			return "", "", false, "unexpected characters after bracketed host"
		}
	}

	switch strings.Count(spec, ":") {
	case 0:
		return spec, "", false, ""
	case 1:
		host, port, _ = strings.Cut(spec, ":")
		return host, port, true, ""
	default:
		if addr, err := netip.ParseAddr(spec); err == nil && addr.Is6() {
			return spec, "", false, ""
		}

		return "", "", false, "IPv6 literal with a port must be bracketed"
	}
}

func (a Address) Host() FQHN {
	return a.host
}

func (a Address) Port() Port {
	return a.port
}

// String returns the normalized host[:port] form.
func (a Address) String() string {
	if !a.port.IsSet() {
		return a.host.String()
	}

	return net.JoinHostPort(a.host.String(), a.port.String())
}
