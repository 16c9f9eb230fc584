package ssrf

import (
	"net/netip"
	"testing"
)

func TestIsBlockedIP(t *testing.T) {
	cases := []struct {
		ip      string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.5", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"::1", true},
		{"fc00::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"93.184.216.34", false},
	}
	for _, tc := range cases {
		addr := netip.MustParseAddr(tc.ip)
		if got := IsBlockedIP(addr); got != tc.blocked {
			t.Errorf("IsBlockedIP(%s) = %v, want %v", tc.ip, got, tc.blocked)
		}
	}
}

func TestParseHostIPNotations(t *testing.T) {
	cases := []struct {
		host string
		want string
		ok   bool
	}{
		{"127.0.0.1", "127.0.0.1", true},
		{"2130706433", "127.0.0.1", true},     // decimal integer
		{"0x7f.0.0.1", "127.0.0.1", true},     // mixed hex octet
		{"0177.0.0.1", "127.0.0.1", true},     // mixed octal octet
		{"[::1]", "::1", true},                // bracketed IPv6
		{"not-an-ip", "", false},
		{"example.com", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseHostIP(tc.host)
		if ok != tc.ok {
			t.Errorf("ParseHostIP(%q) ok = %v, want %v", tc.host, ok, tc.ok)
			continue
		}
		if ok && got.String() != tc.want {
			t.Errorf("ParseHostIP(%q) = %s, want %s", tc.host, got.String(), tc.want)
		}
	}
}

func TestValidateURLHostBlocksMetadataHostname(t *testing.T) {
	err := ValidateURLHost("metadata.google.internal", "req-1")
	if err == nil {
		t.Fatal("expected metadata hostname to be blocked")
	}
}

func TestValidateURLHostBlocksLiteralPrivateIP(t *testing.T) {
	err := ValidateURLHost("192.168.0.1", "req-1")
	if err == nil {
		t.Fatal("expected private IP literal to be blocked")
	}
}

func TestValidateURLHostBlocksObscureLoopbackNotation(t *testing.T) {
	// 2130706433 decimal == 127.0.0.1; this is the core SSRF bypass this
	// package exists to close.
	err := ValidateURLHost("2130706433", "req-1")
	if err == nil {
		t.Fatal("expected decimal-notation loopback address to be blocked")
	}
}
