package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyHeaders are consulted in order when the dev backend sits behind a proxy.
var proxyHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// ClientIP returns the caller's address without port. With trustProxy the
// left-most X-Forwarded-For entry, then X-Real-IP, win over RemoteAddr.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, h := range proxyHeaders {
			v, _, _ := strings.Cut(r.Header.Get(h), ",")
			if ip := hostOnly(strings.TrimSpace(v)); ip != "" {
				return ip
			}
		}
	}
	return hostOnly(r.RemoteAddr)
}

func hostOnly(s string) string {
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// Prefixes is an allow-list of networks. Bare addresses become single-host
// prefixes; unparsable entries are skipped and returned by ParsePrefixes.
type Prefixes []netip.Prefix

func ParsePrefixes(list []string) (Prefixes, []string) {
	var (
		out     Prefixes
		invalid []string
	)
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		invalid = append(invalid, s)
	}
	return out, invalid
}

// Contains reports whether ip falls in one of the prefixes. IPv4-mapped IPv6
// addresses match their IPv4 form.
func (ps Prefixes) Contains(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range ps {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
