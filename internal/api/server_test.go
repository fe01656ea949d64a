package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffutop/savestate/internal/codec"
	"github.com/ffutop/savestate/internal/metrics"
	"github.com/ffutop/savestate/internal/persistence"
	"github.com/ffutop/savestate/internal/slots"
	"github.com/ffutop/savestate/save"
)

type testEnv struct {
	backend *persistence.MemoryBackend
	dir     *slots.Directory
	reg     *prometheus.Registry
	srv     *httptest.Server
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	c := codec.New(codec.JSON{}, codec.Gzip{})
	backend := persistence.NewMemoryBackend()
	dir := slots.NewDirectory(backend, slots.NewMemoryPreferences())

	d := save.SaveData{Main: save.MainData{SaveID: "abc", CurrentScene: "Harbor", ActivePlayerID: 1}}
	raw, err := c.Encode(d)
	require.NoError(t, err)
	require.NoError(t, backend.Write(ctx, save.SlotKey{SlotID: 3}, raw, []byte("png")))
	require.NoError(t, backend.Write(ctx, save.SlotKey{SlotID: 4}, []byte("garbage"), nil))
	require.NoError(t, dir.Commit(save.SlotKey{SlotID: 3}, "Chapter 2"))

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.ObserveSave("success")

	srv := httptest.NewServer(NewServer(dir, backend, c, nil, WithMetrics(m, reg)).Router())
	t.Cleanup(srv.Close)
	return &testEnv{backend: backend, dir: dir, reg: reg, srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestListSlots(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, "GET", "/v1/profiles/0/slots", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refs []save.SlotRef
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refs))
	require.Len(t, refs, 2)
	assert.Equal(t, "Chapter 2", refs[0].Label)
	assert.True(t, refs[0].HasScreenshot)
	assert.Equal(t, "Save 4", refs[1].Label)

	resp = e.do(t, "GET", "/v1/profiles/2/slots", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refs))
	assert.Empty(t, refs)
}

func TestHeader(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"Found", "/v1/profiles/0/slots/3/header", http.StatusOK},
		{"Missing", "/v1/profiles/0/slots/9/header", http.StatusNotFound},
		{"Corrupt", "/v1/profiles/0/slots/4/header", http.StatusUnprocessableEntity},
		{"NotNumeric", "/v1/profiles/0/slots/x/header", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.do(t, "GET", tt.path, "")
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := e.do(t, "GET", "/v1/profiles/0/slots/3/header", "")
	var h save.Header
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "Harbor", h.Main.CurrentScene)
	assert.Equal(t, "abc", h.Main.SaveID)
}

func TestRenameAndDelete(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, "PUT", "/v1/profiles/0/slots/4/label", `{"label":"Lighthouse"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ref save.SlotRef
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ref))
	assert.Equal(t, "Lighthouse", ref.Label)

	resp = e.do(t, "PUT", "/v1/profiles/0/slots/8/label", `{"label":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = e.do(t, "PUT", "/v1/profiles/0/slots/4/label", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, "DELETE", "/v1/profiles/0/slots/3", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	ok, err := e.dir.Exists(context.Background(), save.SlotKey{SlotID: 3})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScreenshot(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, "GET", "/v1/profiles/0/slots/3/screenshot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = e.do(t, "GET", "/v1/profiles/0/slots/4/screenshot", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := new(strings.Builder)
	_, err := io.Copy(body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `savestate_saves_total{outcome="success"} 1`)
}

func TestRequestsAreTimed(t *testing.T) {
	e := newEnv(t)
	e.do(t, "GET", "/v1/profiles/0/slots", "")
	e.do(t, "GET", "/v1/profiles/0/slots/3/header", "")
	e.do(t, "GET", "/health", "")

	families, err := e.reg.Gather()
	require.NoError(t, err)
	var ops []string
	var payloads uint64
	for _, mf := range families {
		switch mf.GetName() {
		case "savestate_payload_bytes":
			payloads = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		case "savestate_operation_seconds":
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					ops = append(ops, lp.GetValue())
				}
				assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, uint64(1), payloads)
	assert.ElementsMatch(t, []string{"api_list", "api_header"}, ops)
}

func TestListenAndServeStops(t *testing.T) {
	s := NewServer(slots.NewDirectory(persistence.NewMemoryBackend(), nil), persistence.NewMemoryBackend(), codec.New(nil, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
