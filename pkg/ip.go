package pkg

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is the set of reverse proxies allowed to report the client
// address through forwarding headers.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts plain addresses and CIDR ranges.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy: %q", entry)
			}
			bits := 8 * net.IPv4len
			if ip.To4() == nil {
				bits = 8 * net.IPv6len
			}
			proxies = append(proxies, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy: %q: %w", entry, err)
		}
		proxies = append(proxies, ipNet)
	}
	return proxies, nil
}

func (p TrustedProxies) Contains(ip net.IP) bool {
	for _, ipNet := range p {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

func parseHostIP(addr string) net.IP {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return net.ParseIP(addr)
}

// ReadUserIP returns the client address. It is the immediate peer unless the
// peer is a trusted proxy; then X-Forwarded-For is walked from the right,
// skipping trusted hops, with X-Real-Ip as the fallback.
func ReadUserIP(r *http.Request, trusted TrustedProxies) (string, error) {
	peer := parseHostIP(r.RemoteAddr)
	if peer == nil {
		return "", fmt.Errorf("ip addr %s is invalid", r.RemoteAddr)
	}
	if !trusted.Contains(peer) {
		return peer.String(), nil
	}

	if fwd := r.Header.Values("X-Forwarded-For"); len(fwd) > 0 {
		hops := strings.Split(strings.Join(fwd, ","), ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			hop := parseHostIP(hops[i])
			if hop == nil {
				// a garbled hop was not written by a trusted proxy
				break
			}
			client = hop
			if !trusted.Contains(hop) {
				break
			}
		}
		return client.String(), nil
	}

	if realIP := parseHostIP(r.Header.Get("X-Real-Ip")); realIP != nil {
		return realIP.String(), nil
	}
	return peer.String(), nil
}
