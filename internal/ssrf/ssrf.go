// Package ssrf validates that a fetch target cannot reach loopback,
// private, link-local, unique-local, or other disallowed network
// ranges, including every IP-address notation a URL parser might
// accept (dotted, hex, octal, decimal integer, mixed, and
// IPv4-mapped-IPv6 forms). The blocked-network list and the
// notation-aware parser are grounded on the SSRF guard in
// other_examples/812ba985_NeboLoop-nebo...web_tool.go, generalized
// here to cover the additional notations spec.md §4.2 requires.
package ssrf

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/use-agent/webpeel/errors"
)

// blockedNets enumerates every disallowed destination range named in
// spec.md §4.2: loopback, RFC1918 private, link-local (incl. cloud
// metadata), unique-local IPv6, CGNAT, broadcast/current-network, and
// IETF special-purpose ranges.
var blockedNets = mustParseNets([]string{
	"127.0.0.0/8",    // IPv4 loopback
	"10.0.0.0/8",     // RFC1918 private
	"172.16.0.0/12",  // RFC1918 private
	"192.168.0.0/16", // RFC1918 private
	"169.254.0.0/16", // link-local, AWS/GCP metadata
	"0.0.0.0/8",      // "this network"
	"100.64.0.0/10",  // CGNAT
	"192.0.0.0/24",   // IETF protocol assignments
	"192.0.2.0/24",   // TEST-NET-1
	"198.18.0.0/15",  // benchmarking
	"198.51.100.0/24",
	"203.0.113.0/24",
	"255.255.255.255/32", // limited broadcast
	"::1/128",            // IPv6 loopback
	"fc00::/7",           // IPv6 unique-local
	"fe80::/10",          // IPv6 link-local
	"::ffff:0:0/96",      // IPv4-mapped prefix itself; members re-checked below
})

func mustParseNets(cidrs []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			panic(fmt.Sprintf("ssrf: invalid CIDR literal %q: %v", c, err))
		}
		out = append(out, p)
	}
	return out
}

var metadataHostnames = map[string]struct{}{
	"metadata.google.internal": {},
	"metadata.google.com":      {},
	"metadata.azure.com":       {},
	"169.254.169.254":          {}, // cloud metadata IP, also CIDR-blocked below
}

// IsBlockedIP reports whether ip falls in any disallowed range.
func IsBlockedIP(ip netip.Addr) bool {
	if !ip.IsValid() {
		return true
	}
	unmapped := ip.Unmap()
	if unmapped.IsLoopback() || unmapped.IsPrivate() || unmapped.IsLinkLocalUnicast() ||
		unmapped.IsLinkLocalMulticast() || unmapped.IsUnspecified() || unmapped.IsMulticast() {
		return true
	}
	for _, n := range blockedNets {
		if n.Contains(unmapped) {
			return true
		}
	}
	return false
}

// ParseHostIP parses host using every notation spec.md §4.2 names:
// dotted-decimal, hex (0x...), octal (0...), plain decimal integer,
// mixed dotted/hex/octal, bracketed IPv6, and IPv4-mapped IPv6
// (::ffff:a.b.c.d). It returns (addr, true) if host parses as any kind
// of IP literal at all (the caller still must run the DNS-resolved
// hostname case separately when it isn't a literal).
func ParseHostIP(host string) (netip.Addr, bool) {
	host = strings.Trim(host, "[]")
	if ip, err := netip.ParseAddr(host); err == nil {
		return ip, true
	}
	if ip4 := parseDecimalOrMixedIPv4(host); ip4.IsValid() {
		return ip4, true
	}
	return netip.Addr{}, false
}

// parseDecimalOrMixedIPv4 handles the notations net.ParseIP rejects:
// a bare decimal/hex/octal 32-bit integer ("2130706433"), and mixed
// per-octet bases ("0x7f.0.0.1", "0177.0.0.1").
func parseDecimalOrMixedIPv4(host string) netip.Addr {
	parts := strings.Split(host, ".")
	if len(parts) == 1 {
		// Single integer form covering the whole address.
		v, err := parseUintAnyBase(parts[0])
		if err != nil {
			return netip.Addr{}
		}
		if v > 0xFFFFFFFF {
			return netip.Addr{}
		}
		b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		return netip.AddrFrom4(b)
	}
	if len(parts) != 4 {
		return netip.Addr{}
	}
	var b [4]byte
	for i, p := range parts {
		v, err := parseUintAnyBase(p)
		if err != nil || v > 255 {
			return netip.Addr{}
		}
		b[i] = byte(v)
	}
	return netip.AddrFrom4(b)
}

func parseUintAnyBase(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty octet")
	}
	// strconv.ParseUint with base 0 honors 0x/0o/0 prefixes, matching
	// the hex/octal/decimal notations named in spec.md §4.2.
	return strconv.ParseUint(s, 0, 64)
}

// ValidateURLHost checks hostname and, if it is not a literal IP,
// resolves it and checks every resolved address. requestID threads
// through to the returned error for the caller's error detail.
func ValidateURLHost(hostname, requestID string) error {
	lower := strings.ToLower(hostname)
	if _, blocked := metadataHostnames[lower]; blocked {
		return errors.SSRFBlocked(requestID, "access to cloud metadata hosts is not allowed")
	}
	if ip, ok := ParseHostIP(hostname); ok {
		if IsBlockedIP(ip) {
			return errors.SSRFBlocked(requestID, "access to "+rangeName(ip)+" addresses is not allowed")
		}
		return nil
	}
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return errors.Network(requestID, "dns lookup failed for "+hostname, err)
	}
	if len(ips) == 0 {
		return errors.SSRFBlocked(requestID, "hostname did not resolve to any address")
	}
	for _, rawIP := range ips {
		addr, ok := netip.AddrFromSlice(rawIP)
		if !ok {
			continue
		}
		if IsBlockedIP(addr) {
			return errors.SSRFBlocked(requestID, "access to "+rangeName(addr)+" addresses is not allowed")
		}
	}
	return nil
}

func rangeName(ip netip.Addr) string {
	u := ip.Unmap()
	switch {
	case u.IsLoopback():
		return "loopback"
	case u.IsPrivate():
		return "private"
	case u.IsLinkLocalUnicast(), u.IsLinkLocalMulticast():
		return "link-local"
	case u.IsUnspecified():
		return "0/8"
	default:
		return "disallowed network range"
	}
}
