package assets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrBlocked marks a URL the SSRF guard refused to fetch. The wrapped message
// carries the human-readable reason recorded on the asset.
var ErrBlocked = errors.New("blocked")

func blocked(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBlocked, fmt.Sprintf(format, args...))
}

// CheckRemoteURL validates a candidate remote URL before a network fetch.
// It must be called immediately before every fetch, not at extraction time:
// DNS answers are attacker-influenced and can change between calls, so every
// resolved address is validated every time.
func CheckRemoteURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return blocked("url does not parse: %v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return blocked("scheme %q is not allowed", u.Scheme)
	}

	if u.User != nil {
		return blocked("url must not embed credentials")
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return blocked("url has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return blocked("host %q is localhost", host)
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return blocked("host %q did not resolve: %v", host, err)
	}
	if len(addrs) == 0 {
		return blocked("host %q resolved to no addresses", host)
	}

	for _, addr := range addrs {
		if reason := disallowedIP(addr.IP); reason != "" {
			return blocked("host %q resolves to %s (%s)", host, addr.IP, reason)
		}
	}

	return nil
}

// disallowedIP returns a non-empty reason when the address must not be
// fetched from a server process
func disallowedIP(ip net.IP) string {
	switch {
	case ip.IsUnspecified():
		return "unspecified address"
	case ip.IsLoopback():
		return "loopback address"
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return "link-local address"
	case ip.IsPrivate():
		return "private address"
	case ip.IsMulticast():
		return "multicast address"
	}

	if v4 := ip.To4(); v4 != nil {
		// 0.0.0.0/8 is reserved "this network"
		if v4[0] == 0 {
			return "reserved address"
		}
	} else if len(ip) == net.IPv6len {
		if ip[0]&0xfe == 0xfc {
			// fc00::/7 unique-local
			return "unique-local address"
		}
		if ip[0] == 0xfe && ip[1]&0xc0 == 0xc0 {
			// fec0::/10 deprecated site-local (RFC 3879)
			return "site-local address"
		}
	}

	return ""
}
