// Package reqnorm normalizes a fetch URL and computes the cache
// fingerprint used throughout the pipeline, grounded on the key
// derivation in the teacher's cache/cache.go Key function: lowercase
// host, strip default port, sort query parameters, drop the fragment.
package reqnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Normalize applies the rules spec.md §4.7 requires: lowercase host,
// default port stripped, empty path becomes "/", fragment removed,
// query params sorted. It does not validate scheme or reachability;
// callers run SSRF validation separately.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.Host = strings.ToLower(u.Host)
	u.Host = stripDefaultPort(u.Host, u.Scheme)
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawQuery = sortedQuery(u.RawQuery)
	return u.String(), nil
}

func stripDefaultPort(host, scheme string) string {
	h, port, err := splitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		return h
	}
	return host
}

func splitHostPort(host string) (string, string, error) {
	idx := strings.LastIndex(host, ":")
	if idx < 0 {
		return host, "", nil
	}
	// Guard against bare IPv6 literals without a port, e.g. "[::1]".
	if strings.Count(host, ":") > 1 && !strings.HasSuffix(host, "]") {
		return host, "", nil
	}
	return host[:idx], host[idx+1:], nil
}

func sortedQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for j, v := range vs {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
			_ = i
			_ = j
		}
	}
	return b.String()
}

// Fingerprint hashes the normalized URL together with the options hash
// (a caller-supplied string already canonicalized from the option
// struct) into the SHA-256 hex digest used as the cache key.
func Fingerprint(normalizedURL, optionsHash string) string {
	h := sha256.New()
	h.Write([]byte(normalizedURL))
	h.Write([]byte{0})
	h.Write([]byte(optionsHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Host returns the lowercase hostname (no port) of rawURL, used for
// domain-memory and rate-limiter keys.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	h, _, err := splitHostPort(strings.ToLower(u.Host))
	if err != nil {
		return strings.ToLower(u.Host)
	}
	return h
}
