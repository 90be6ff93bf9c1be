package pkg

import (
	"net"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 172.20.0.1 ", "::1"})
	require.NoError(t, err)
	require.Len(t, proxies, 3)

	assert.True(t, proxies.Contains(net.ParseIP("10.200.3.4")))
	assert.True(t, proxies.Contains(net.ParseIP("172.20.0.1")))
	assert.False(t, proxies.Contains(net.ParseIP("172.20.0.2")))
	assert.True(t, proxies.Contains(net.ParseIP("::1")))
	assert.False(t, proxies.Contains(net.ParseIP("203.0.113.7")))

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	var none TrustedProxies
	assert.False(t, none.Contains(net.ParseIP("127.0.0.1")))
}

func TestReadUserIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"172.20.0.0/16"})
	require.NoError(t, err)

	cases := []struct {
		name          string
		trusted       TrustedProxies
		remoteAddr    string
		realIP        string
		forwardedFor  string
		expectedIP    string
		expectedError bool
	}{
		{name: "remote addr with port", remoteAddr: "83.12.53.65:2145", expectedIP: "83.12.53.65"},
		{name: "ipv6 remote addr", remoteAddr: "[::1]:8080", expectedIP: "::1"},
		{name: "garbage", remoteAddr: "not-an-ip", expectedError: true},
		{
			name:       "headers ignored without trusted proxies",
			remoteAddr: "203.0.113.7:40000", realIP: "111.12.56.65", forwardedFor: "10.0.0.1",
			expectedIP: "203.0.113.7",
		},
		{
			name:    "headers ignored from untrusted peer",
			trusted: trusted, remoteAddr: "203.0.113.7:40000", forwardedFor: "10.0.0.1",
			expectedIP: "203.0.113.7",
		},
		{
			name:    "trusted peer, forwarded for",
			trusted: trusted, remoteAddr: "172.20.0.1:60102", forwardedFor: "83.12.53.65",
			expectedIP: "83.12.53.65",
		},
		{
			name:    "spoofed left hops are skipped",
			trusted: trusted, remoteAddr: "172.20.0.1:60102", forwardedFor: "1.1.1.1, 83.12.53.65, 172.20.0.9",
			expectedIP: "83.12.53.65",
		},
		{
			name:    "all hops trusted",
			trusted: trusted, remoteAddr: "172.20.0.1:60102", forwardedFor: "172.20.0.5, 172.20.0.9",
			expectedIP: "172.20.0.5",
		},
		{
			name:    "garbled hop stops the walk",
			trusted: trusted, remoteAddr: "172.20.0.1:60102", forwardedFor: "83.12.53.65, junk",
			expectedIP: "172.20.0.1",
		},
		{
			name:    "trusted peer, real ip",
			trusted: trusted, remoteAddr: "172.20.0.1:60102", realIP: "111.12.56.65",
			expectedIP: "111.12.56.65",
		},
		{
			name:    "trusted peer, no headers",
			trusted: trusted, remoteAddr: "172.20.0.1:60102",
			expectedIP: "172.20.0.1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.realIP != "" {
				req.Header.Set("X-Real-Ip", tc.realIP)
			}
			if tc.forwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tc.forwardedFor)
			}

			ip, err := ReadUserIP(req, tc.trusted)
			if tc.expectedError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedIP, ip)
		})
	}
}
