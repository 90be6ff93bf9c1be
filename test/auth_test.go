//go:build integration_test || all_tests

package test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfield-academy/website/internal/auth"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := map[string]struct {
		body               any
		expectedStatusCode int
		expectedBody       string
		expectCookie       bool
	}{
		"good creds": {
			body:               loginRequest{Username: testUsername, Password: testPassword},
			expectedStatusCode: http.StatusOK,
			expectedBody:       `{"success":true}`,
			expectCookie:       true,
		},
		"bad password": {
			body:               loginRequest{Username: testUsername, Password: "bad-password"},
			expectedStatusCode: http.StatusUnauthorized,
			expectedBody:       `{"error":"Invalid credentials"}`,
		},
		"unknown user": {
			body:               loginRequest{Username: "nobody", Password: testPassword},
			expectedStatusCode: http.StatusUnauthorized,
			expectedBody:       `{"error":"Invalid credentials"}`,
		},
		"username case differs": {
			body:               loginRequest{Username: strings.ToUpper(testUsername), Password: testPassword},
			expectedStatusCode: http.StatusUnauthorized,
			expectedBody:       `{"error":"Invalid credentials"}`,
		},
		"missing password": {
			body:               `{"username":"admin"}`,
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       `{"error":"Invalid payload"}`,
		},
		"not json": {
			body:               "username=admin",
			expectedStatusCode: http.StatusBadRequest,
			expectedBody:       `{"error":"Invalid payload"}`,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := s.doRequest(ctx, s.newClient(), http.MethodPost, "/api/auth/login", tc.body, nil)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatusCode, resp.StatusCode)
			respBytes, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expectedBody, string(respBytes))

			cookie := sessionCookie(resp)
			if !tc.expectCookie {
				assert.Nil(t, cookie)
				return
			}
			require.NotNil(t, cookie)
			assert.NotEmpty(t, cookie.Value)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
			assert.Equal(t, "/", cookie.Path)
			assert.Equal(t, int(auth.DefaultSessionTTL.Seconds()), cookie.MaxAge)
			// development environment
			assert.False(t, cookie.Secure)
		})
	}
}

func (s *IntegrationTestSuite) TestAdminGuard() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	anonymous := s.newClient()
	for _, path := range []string{"/admin", "/admin/dashboard", "/api/admin/session", "/api/admin/content/news"} {
		resp := s.doRequest(ctx, anonymous, http.MethodGet, path, nil, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode, path)
		assert.Equal(t, "/admin/login", resp.Header.Get("Location"), path)
	}

	// login page is reachable without a session
	resp := s.doRequest(ctx, anonymous, http.MethodGet, "/admin/login", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// not a protected prefix
	resp = s.doRequest(ctx, anonymous, http.MethodGet, "/administrator", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// token signed with another secret
	forger, err := auth.NewTokenCodec([]byte("not-the-server-secret"))
	require.NoError(t, err)
	forged, err := forger.Issue(auth.Claim{Subject: "forged-id", Username: testUsername})
	require.NoError(t, err)
	resp = s.doRequest(ctx, anonymous, http.MethodGet, "/api/admin/session", nil, map[string]string{
		"Cookie": "session=" + forged,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	// expired token signed with the real secret
	expiredCodec, err := auth.NewTokenCodec(
		[]byte(testSessionSecret),
		auth.WithClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }),
	)
	require.NoError(t, err)
	expired, err := expiredCodec.Issue(auth.Claim{Subject: "some-id", Username: testUsername})
	require.NoError(t, err)
	resp = s.doRequest(ctx, anonymous, http.MethodGet, "/api/admin/session", nil, map[string]string{
		"Cookie": "session=" + expired,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	admin := s.newClient()
	s.login(ctx, admin)

	resp = s.doRequest(ctx, admin, http.MethodGet, "/api/admin/session", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session struct {
		Username  string    `json:"username"`
		Sub       string    `json:"sub"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	s.decodeJSON(resp, &session)
	assert.Equal(t, testUsername, session.Username)
	assert.NotEmpty(t, session.Sub)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultSessionTTL), session.ExpiresAt, time.Minute)

	resp = s.doRequest(ctx, admin, http.MethodGet, "/admin", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestLogout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admin := s.newClient()
	s.login(ctx, admin)

	resp := s.doRequest(ctx, admin, http.MethodPost, "/api/auth/logout", nil, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)

	resp = s.doRequest(ctx, admin, http.MethodGet, "/api/admin/session", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
}
