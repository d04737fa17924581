package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(nil, nil, zerolog.Nop(), Options{})
}

func performRequest(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	server.buildEcho().ServeHTTP(rec, req)
	return rec
}

func decodeJSend(t *testing.T, rec *httptest.ResponseRecorder) jsendResponse {
	t.Helper()
	var resp jsendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	rec := performRequest(t, newTestServer(t), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSend(t, rec)
	require.Equal(t, "success", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "infact", data["service"])
}

func TestHandleProcessRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	rec := performRequest(t, newTestServer(t), http.MethodPost, "/api/v1/process", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeJSend(t, rec)
	require.Equal(t, "fail", resp.Status)
	require.Equal(t, "Validation failed", resp.Message)
}

func TestHandleProcessRejectsSingleArticle(t *testing.T) {
	t.Parallel()

	payload := `{"articles": [{"title": "Only one", "content": "A lone article cannot form a batch no matter how long its content runs.", "source": "ap"}]}`
	rec := performRequest(t, newTestServer(t), http.MethodPost, "/api/v1/process", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeJSend(t, rec)
	require.Equal(t, "fail", resp.Status)
}

func TestHandleClusterSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	rec := performRequest(t, newTestServer(t), http.MethodGet, "/api/v1/clusters/search", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeJSend(t, rec)
	require.Equal(t, "fail", resp.Status)
}

func TestHandleClusterDetailRejectsMalformedUUID(t *testing.T) {
	t.Parallel()

	rec := performRequest(t, newTestServer(t), http.MethodGet, "/api/v1/clusters/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeJSend(t, rec)
	require.Equal(t, "fail", resp.Status)
	require.Equal(t, "Validation failed", resp.Message)
}

func TestHandleClustersBySourceRequiresSource(t *testing.T) {
	t.Parallel()

	rec := performRequest(t, newTestServer(t), http.MethodGet, "/api/v1/clusters/by-source", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeJSend(t, rec)
	require.Equal(t, "fail", resp.Status)
}

func TestHandleTimelineRejectsBadDays(t *testing.T) {
	t.Parallel()

	rec := performRequest(t, newTestServer(t), http.MethodGet, "/api/v1/timeline?days=zero", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClustersRejectsOutOfRangeLimit(t *testing.T) {
	t.Parallel()

	rec := performRequest(t, newTestServer(t), http.MethodGet, "/api/v1/clusters?limit=9999", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewServerDefaults(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, zerolog.Nop(), Options{})
	require.Equal(t, "0.0.0.0", server.opts.Host)
	require.Equal(t, 8090, server.opts.Port)
	require.Equal(t, 10*time.Second, server.opts.ReadTimeout)
	require.Equal(t, []string{"*"}, server.opts.AllowedOrigins)
	require.Equal(t, 30, server.opts.RetentionDays)
}

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	value, err := parsePositiveInt("", 25, 1, 200)
	require.NoError(t, err)
	require.Equal(t, 25, value)

	value, err = parsePositiveInt(" 50 ", 25, 1, 200)
	require.NoError(t, err)
	require.Equal(t, 50, value)

	_, err = parsePositiveInt("0", 25, 1, 200)
	require.Error(t, err)

	_, err = parsePositiveInt("201", 25, 1, 200)
	require.Error(t, err)

	_, err = parsePositiveInt("abc", 25, 1, 200)
	require.Error(t, err)
}
