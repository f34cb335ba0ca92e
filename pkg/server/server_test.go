package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccsim/pkg/config"
	dberr "ccsim/pkg/error"
	"ccsim/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.Discard()
	code := m.Run()
	_ = logging.Close()
	os.Exit(code)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(config.Default())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestTwoPhaseRoute(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/twophase", map[string]string{"input_seq": "R1(A)W2(A)C1;C2;"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SL1(A);R1(A);UL1(A);C1;XL2(A);W2(A);UL2(A);C2", body["result"])
	assert.Equal(t, "twophase", body["algorithm"])
	assert.NotEmpty(t, body["run_id"])
	assert.NotContains(t, body, "grid")
}

func TestOCCRouteReportsAborts(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/occ", map[string]string{"input_seq": "R1(A)R2(B)W1(B)W2(A)C1;C2;"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "R1(A);W1(B);C1;R2(B);W2(A);C2", body["result"])

	aborted, ok := body["aborted"].([]any)
	require.True(t, ok)
	require.Len(t, aborted, 1)
	ev := aborted[0].(map[string]any)
	assert.Equal(t, float64(2), ev["tx_id"])
	assert.Equal(t, dberr.CodeConflictAbort, ev["code"])
	assert.Equal(t, true, ev["restarted"])
}

func TestRouteErrors(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name  string
		route string
		input string
		code  string
	}{
		{"parse error", "/twophase", "R1(A)Q2", dberr.CodeParse},
		{"incomplete", "/occ", "R1(A)", dberr.CodeIncompleteSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, ts.URL+tt.route, map[string]string{"input_seq": tt.input})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body, "result")
		})
	}
}

func TestSimulateRoute(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/simulate", map[string]string{
		"algorithm":      "occ",
		"aborted_policy": "flag",
		"input_seq":      "R1(A)R2(B)W1(B)W2(A)C1;C2;",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "R1(A);R2(B);W1(B);W2(A);C1;A2;R2(B);W2(A);C2", body["result"])

	grid, ok := body["grid"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"T1", "T2"}, grid["headers"])
	assert.Len(t, grid["rows"], 9)
}

func TestSimulateRouteLargeTransactionID(t *testing.T) {
	_, ts := newTestServer(t)

	data, err := json.Marshal(map[string]string{"algorithm": "occ", "input_seq": "R20000000(A)C20000000"})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/simulate", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Less(t, len(raw), 1024)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	grid, ok := body["grid"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"T20000000"}, grid["headers"])
	assert.Len(t, grid["rows"], 2)
}

func TestSimulateRouteOmitsOversizedGrid(t *testing.T) {
	_, ts := newTestServer(t)

	var b strings.Builder
	for i := 1; i <= 1100; i++ {
		b.WriteString("C" + strconv.Itoa(i))
	}
	resp, body := postJSON(t, ts.URL+"/simulate", map[string]string{"algorithm": "occ", "input_seq": b.String()})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "grid")
	diagnostics, ok := body["diagnostics"].([]any)
	require.True(t, ok)
	assert.Contains(t, diagnostics[len(diagnostics)-1], "too large for grid view")
}

func TestSimulateRouteDefaultsAndValidation(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/simulate", map[string]string{"input_seq": "R1(A)C1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "twophase", body["algorithm"])

	resp, body = postJSON(t, ts.URL+"/simulate", map[string]string{"algorithm": "mvcc", "input_seq": "R1(A)C1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, dberr.CodeInvalidConfig, body["code"])

	resp, _ = postJSON(t, ts.URL+"/simulate", map[string]string{"aborted_policy": "hide", "input_seq": "R1(A)C1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidJSON(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/twophase", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxRequestSize = 16
	ts := httptest.NewServer(New(cfg).Handler())
	defer ts.Close()

	resp, _ := postJSON(t, ts.URL+"/occ", map[string]string{"input_seq": strings.Repeat("R1(A)", 20) + "C1"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/twophase")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36, "a UUID is assigned")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/occ", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	postJSON(t, ts.URL+"/twophase", map[string]string{"input_seq": "R1(A)R2(B)W1(B)W2(A)C1;C2"})
	postJSON(t, ts.URL+"/occ", map[string]string{"input_seq": "R1("})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `ccsim_runs_total{algorithm="twophase",outcome="aborts"} 1`)
	assert.Contains(t, text, `ccsim_aborts_total{algorithm="twophase",code="DEADLOCK_VICTIM"} 1`)
	assert.Contains(t, text, `ccsim_run_failures_total{algorithm="occ",code="PARSE_ERROR"} 1`)
	assert.Contains(t, text, `ccsim_http_requests_total{route="POST /twophase",status="200"} 1`)
	assert.Contains(t, text, "ccsim_run_duration_seconds_bucket")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Server.EnableMetrics = false
	ts := httptest.NewServer(New(cfg).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
