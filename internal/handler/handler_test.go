package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftp_control/internal/logger"
	"ftp_control/models"
)

type stubInvoker struct {
	out models.Outcome
	got models.ManageRequest
}

func (s *stubInvoker) Invoke(_ context.Context, req models.ManageRequest) models.Outcome {
	s.got = req
	return s.out
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ftp/manage", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestManage_Success(t *testing.T) {
	inv := &stubInvoker{out: models.Outcome{OK: true, Operation: "list", RemotePath: "/srv", Items: []string{}, Message: "/srv is empty"}}
	h := NewRouter(inv, prometheus.NewRegistry(), logger.NewTestLogger())

	rec := post(t, h, `{"operation":"list","server_path":"/"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "list", inv.got.Operation)
	assert.Equal(t, "/", inv.got.ServerPath)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, []any{}, body["items"])
	assert.Equal(t, "/srv is empty", body["message"])
}

func TestManage_FailureStatus(t *testing.T) {
	tests := []struct {
		kind string
		code int
	}{
		{"InvalidArgument", http.StatusBadRequest},
		{"LocalFileNotFound", http.StatusNotFound},
		{"LocalPermissionDenied", http.StatusForbidden},
		{"RemoteStatusError", http.StatusBadGateway},
		{"ConnectionError", http.StatusBadGateway},
		{"LocalSystemError", http.StatusInternalServerError},
		{"Unknown", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			inv := &stubInvoker{out: models.Outcome{OK: false, Operation: "delete", Error: tt.kind, Message: "nope"}}
			rec := post(t, NewRouter(inv, prometheus.NewRegistry(), logger.NewTestLogger()), `{"operation":"delete"}`)

			assert.Equal(t, tt.code, rec.Code)
			var out models.Outcome
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, tt.kind, out.Error)
			assert.False(t, out.OK)
		})
	}
}

func TestManage_BadJSON(t *testing.T) {
	rec := post(t, NewRouter(&stubInvoker{}, prometheus.NewRegistry(), logger.NewTestLogger()), `{"operation":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Invalid JSON format")
}

func TestManage_MethodNotAllowed(t *testing.T) {
	h := NewRouter(&stubInvoker{}, prometheus.NewRegistry(), logger.NewTestLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ftp/manage", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"}))
	h := NewRouter(&stubInvoker{}, reg, logger.NewTestLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "probe_total")
}
