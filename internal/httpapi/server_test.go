package httpapi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kitbuilder587/tubescout/internal/export"
	"github.com/kitbuilder587/tubescout/internal/metrics"
	"github.com/kitbuilder587/tubescout/internal/ratelimit"
	"github.com/kitbuilder587/tubescout/internal/search"
	searchMock "github.com/kitbuilder587/tubescout/internal/search/mock"
	"github.com/kitbuilder587/tubescout/internal/service"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	server  *Server
	client  *searchMock.Client
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, client *searchMock.Client, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()

	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	agg := service.NewAggregator(service.AggregatorDeps{
		Search: client,
		Logger: zap.NewNop(),
	})
	srv := NewServer(ServerDeps{
		Aggregator: agg,
		Limiter:    limiter,
		Metrics:    m,
		Logger:     zap.NewNop(),
		Config: Config{
			Limits: service.QueryLimits{DefaultResults: 50, MaxResults: 1000},
		},
		Now: func() time.Time { return fixedNow },
	})
	return &testEnv{server: srv, client: client, metrics: m}
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "192.0.2.10:5555"
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func twoPages() *searchMock.Client {
	newest := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	return searchMock.New().WithPages(
		search.Page{Items: searchMock.Items("a", 2, newest), NextPageToken: "next"},
		search.Page{Items: searchMock.Items("b", 1, newest.AddDate(0, 0, -10))},
	)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, searchMock.New(), nil)

	rec := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, searchMock.New(), nil)

	rec := env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, twoPages(), nil)

	rec := env.get(t, "/api/search?q=golang&from=2024-01-01&to=2024-01-31&limit=10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "golang", resp.Keyword)
	assert.Equal(t, "2024-01-01", resp.From)
	assert.Equal(t, "2024-01-31", resp.To)
	assert.Equal(t, 3, resp.Count)
	require.Len(t, resp.Records, 3)
	assert.Equal(t, recordJSON{
		PublishedDate: "2024-01-31",
		Title:         "Video a-0",
		Author:        "Channel a",
		URL:           "https://www.youtube.com/watch?v=a-0",
	}, resp.Records[0])
	assert.Equal(t, "https://www.youtube.com/watch?v=b-0", resp.Records[2].URL)

	reqs := env.client.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 10, reqs[0].PageSize)
	assert.Equal(t, 8, reqs[1].PageSize)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.RequestsTotal.WithLabelValues("http_search", "success")))
}

func TestSearch_Defaults(t *testing.T) {
	env := newTestEnv(t, searchMock.New(), nil)

	rec := env.get(t, "/api/search?q=go")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-02-15", resp.From)
	assert.Equal(t, "2024-03-15", resp.To)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Records)
	assert.Contains(t, rec.Body.String(), `"records":[]`)

	assert.Equal(t, 50, env.client.LastRequest.PageSize)
}

func TestSearch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing keyword", "/api/search"},
		{"blank keyword", "/api/search?q=%20%20"},
		{"bad date", "/api/search?q=go&from=2024/01/01"},
		{"reversed dates", "/api/search?q=go&from=2024-02-01&to=2024-01-01"},
		{"limit not a number", "/api/search?q=go&limit=lots"},
		{"zero limit", "/api/search?q=go&limit=0"},
		{"limit too large", "/api/search?q=go&limit=1001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, searchMock.New(), nil)

			rec := env.get(t, tt.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "validation", body.Kind)
			assert.NotEmpty(t, body.Error)
			assert.Zero(t, env.client.CallCount)
		})
	}
}

func TestSearch_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"invalid key", search.ErrUnauthorized, http.StatusBadGateway, "invalid_credential"},
		{"quota", search.ErrQuotaExceeded, http.StatusTooManyRequests, "quota_exceeded"},
		{"transport", search.ErrSearchFailed, http.StatusBadGateway, "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, searchMock.New().WithError(tt.err), nil)

			rec := env.get(t, "/api/search?q=go")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, 1, env.client.CallCount)
		})
	}
}

func TestSearch_ProtocolAnomaly(t *testing.T) {
	client := searchMock.New().WithHandler(func(call int, req search.PageRequest) (*search.Page, error) {
		return &search.Page{NextPageToken: fmt.Sprintf("t%d", call)}, nil
	})
	env := newTestEnv(t, client, nil)

	rec := env.get(t, "/api/search?q=go")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "protocol_anomaly")
}

func TestExport_CSV(t *testing.T) {
	env := newTestEnv(t, twoPages(), nil)

	rec := env.get(t, "/api/export/csv?q=golang&from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "golang_results.csv", params["filename"])

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "\ufeff"))
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(body, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"published_date", "title", "author", "url"}, rows[0])
	assert.Equal(t, "2024-01-31", rows[1][0])
}

func TestExport_XLSX(t *testing.T) {
	env := newTestEnv(t, twoPages(), nil)

	rec := env.get(t, "/api/export/xlsx?q=go%20lang")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "go lang_results.xlsx", params["filename"])

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestExport_NonASCIIFilename(t *testing.T) {
	env := newTestEnv(t, twoPages(), nil)

	rec := env.get(t, "/api/export/csv?q=%E6%97%A5%E6%9C%AC")
	require.Equal(t, http.StatusOK, rec.Code)

	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "日本_results.csv", params["filename"])
}

func TestExport_UnknownFormat(t *testing.T) {
	env := newTestEnv(t, twoPages(), nil)

	rec := env.get(t, "/api/export/pdf?q=go")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, env.client.CallCount)
}

func TestExport_UpstreamError(t *testing.T) {
	env := newTestEnv(t, searchMock.New().WithError(search.ErrUnauthorized), nil)

	rec := env.get(t, "/api/export/csv?q=go")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 2})
	t.Cleanup(limiter.Stop)

	env := newTestEnv(t, searchMock.New(), limiter)

	assert.Equal(t, http.StatusOK, env.get(t, "/api/search?q=go").Code)
	assert.Equal(t, http.StatusOK, env.get(t, "/api/search?q=go").Code)

	rec := env.get(t, "/api/search?q=go")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), kindRateLimited)
	assert.Equal(t, 2, env.client.CallCount)

	// health is not limited
	assert.Equal(t, http.StatusOK, env.get(t, "/health").Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.RateLimitHitsTotal.WithLabelValues("http")))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor("canceled"))
	assert.Equal(t, http.StatusBadGateway, statusFor("malformed_response"))
	assert.Equal(t, http.StatusInternalServerError, statusFor(""))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", clientIP(req))
}
