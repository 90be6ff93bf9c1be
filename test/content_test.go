//go:build integration_test || all_tests

package test

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfield-academy/website/internal/content"
)

type recordsResponse struct {
	Records []content.Record `json:"records"`
	Total   int              `json:"total"`
}

func (s *IntegrationTestSuite) publicNews(ctx context.Context) recordsResponse {
	resp := s.doRequest(ctx, s.newClient(), http.MethodGet, "/api/content/news", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var records recordsResponse
	s.decodeJSON(resp, &records)
	return records
}

func (s *IntegrationTestSuite) TestContentLifecycle() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admin := s.newClient()
	s.login(ctx, admin)

	before := s.publicNews(ctx)

	title := gofakeit.Sentence(5)
	resp := s.doRequest(ctx, admin, http.MethodPost, "/api/admin/content/news", map[string]any{
		"title": title,
		"body":  gofakeit.Paragraph(1, 3, 10, " "),
		"data":  map[string]string{"author": gofakeit.Name()},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created content.Record
	s.decodeJSON(resp, &created)
	assert.Positive(t, created.ID)
	assert.Equal(t, content.KindNews, created.Kind)
	assert.True(t, created.IsActive)

	// public listing sees the new record first
	after := s.publicNews(ctx)
	require.Equal(t, before.Total+1, after.Total)
	assert.Equal(t, created.ID, after.Records[0].ID)
	assert.Equal(t, title, after.Records[0].Title)

	recordPath := "/api/content/news/" + strconv.Itoa(created.ID)
	resp = s.doRequest(ctx, s.newClient(), http.MethodGet, recordPath, nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	adminRecordPath := "/api/admin/content/news/" + strconv.Itoa(created.ID)
	resp = s.doRequest(ctx, admin, http.MethodPut, adminRecordPath, map[string]any{
		"title": "updated " + title,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated content.Record
	s.decodeJSON(resp, &updated)
	assert.Equal(t, "updated "+title, updated.Title)

	resp = s.doRequest(ctx, admin, http.MethodDelete, adminRecordPath, nil, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// soft deleted: gone from the public surface, still visible to the admin
	assert.Equal(t, before.Total, s.publicNews(ctx).Total)
	resp = s.doRequest(ctx, s.newClient(), http.MethodGet, recordPath, nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.doRequest(ctx, admin, http.MethodGet, adminRecordPath, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deactivated content.Record
	s.decodeJSON(resp, &deactivated)
	assert.False(t, deactivated.IsActive)
}

func (s *IntegrationTestSuite) TestContentBadRequests() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admin := s.newClient()
	s.login(ctx, admin)

	resp := s.doRequest(ctx, admin, http.MethodGet, "/api/admin/content/recipes", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.doRequest(ctx, admin, http.MethodPost, "/api/admin/content/news", map[string]any{"body": "no title"}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// subscribers are not part of the public surface
	resp = s.doRequest(ctx, s.newClient(), http.MethodGet, "/api/content/subscribers", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestSubscribe() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := s.newClient()
	// loopback is a trusted proxy here; own client address, so other tests
	// do not eat into the limit
	headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}
	email := strings.ToLower(gofakeit.Email())

	resp := s.doRequest(ctx, client, http.MethodPost, "/api/subscribers", map[string]string{"email": email}, headers)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.doRequest(ctx, client, http.MethodPost, "/api/subscribers", map[string]string{"email": email}, headers)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.doRequest(ctx, client, http.MethodPost, "/api/subscribers", map[string]string{"email": "not-an-email"}, headers)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// limit is 3 per minute
	resp = s.doRequest(ctx, client, http.MethodPost, "/api/subscribers", map[string]string{"email": gofakeit.Email()}, headers)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// stored as a subscribers record, visible to the admin only
	admin := s.newClient()
	s.login(ctx, admin)
	resp = s.doRequest(ctx, admin, http.MethodGet, "/api/admin/content/subscribers", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var subscribers recordsResponse
	s.decodeJSON(resp, &subscribers)
	found := false
	for _, rec := range subscribers.Records {
		if rec.Title == email {
			found = true
		}
	}
	assert.True(t, found, fmt.Sprintf("subscriber %s not stored", email))
}
