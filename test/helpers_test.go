//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *IntegrationTestSuite) doRequest(
	ctx context.Context,
	client *http.Client,
	method, path string,
	body any,
	headers map[string]string,
) *http.Response {
	var reqBody io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reqBody = bytes.NewBufferString(b)
		default:
			payload, err := json.Marshal(body)
			s.Require().NoError(err)
			reqBody = bytes.NewBuffer(payload)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	s.Require().NoError(err)
	return resp
}

// login signs the client in; its cookie jar holds the session afterwards.
func (s *IntegrationTestSuite) login(ctx context.Context, client *http.Client) {
	resp := s.doRequest(ctx, client, http.MethodPost, "/api/auth/login", loginRequest{
		Username: testUsername,
		Password: testPassword,
	}, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *IntegrationTestSuite) decodeJSON(resp *http.Response, v any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}
