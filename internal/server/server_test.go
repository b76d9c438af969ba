package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/recipegraph/pkg/observability"
	"github.com/matzehuels/recipegraph/pkg/overlap"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
	"github.com/matzehuels/recipegraph/pkg/recipe"
)

type staticSource struct {
	records []recipe.Record
	loads   int
}

func (s *staticSource) Load(context.Context) ([]recipe.Record, error) {
	s.loads++
	return s.records, nil
}

func ing(pairs ...any) recipe.Ingredients {
	var out recipe.Ingredients
	for i := 0; i < len(pairs); i += 2 {
		out.Set(pairs[i].(string), pairs[i+1].(int))
	}
	return out
}

// twoTriangles is two product triangles joined by one edge.
func twoTriangles() *staticSource {
	return &staticSource{records: []recipe.Record{
		{Product: "A", Ingredients: ing("B", 1)},
		{Product: "B", Ingredients: ing("C", 1)},
		{Product: "C", Ingredients: ing("A", 1, "D", 1)},
		{Product: "D", Ingredients: ing("E", 1)},
		{Product: "E", Ingredients: ing("F", 1)},
		{Product: "F", Ingredients: ing("D", 1)},
		{Product: "Motor", Ingredients: ing("Rotor", 1, "Stator", 1)},
		{Product: "Generator", Ingredients: ing("Rotor", 2, "Stator", 2)},
	}}
}

func newTestServer(t *testing.T, src pipeline.RecordSource, metrics http.Handler) (*Server, *httptest.Server) {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	s := New(pipeline.NewRunner(nil, nil, logger), pipeline.Options{Source: src}, logger, metrics)
	require.NoError(t, s.Refresh(context.Background()))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, twoTriangles(), nil)

	var health healthResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.Build.Version)
	assert.NotEmpty(t, health.Snapshot)
	assert.Equal(t, 10, health.Nodes)
	assert.Equal(t, 11, health.Edges)
}

func TestHealthBeforeLoad(t *testing.T) {
	s := New(pipeline.NewRunner(nil, nil, nil), pipeline.Options{Source: twoTriangles()}, log.New(io.Discard), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/graph", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCommunities(t *testing.T) {
	_, ts := newTestServer(t, twoTriangles(), nil)

	var resp communitiesResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/communities", &resp))
	assert.Equal(t, pipeline.MethodModularity, resp.Method)
	assert.Greater(t, resp.Q, 0.0)
	assert.NotEmpty(t, resp.Merges)
	assert.Equal(t, resp.Labels["A"], resp.Labels["C"])
	assert.NotEqual(t, resp.Labels["A"], resp.Labels["E"])
	assert.Len(t, resp.Labels, 10, "modularity labels every node")

	members := 0
	for _, c := range resp.Communities {
		members += len(c)
	}
	assert.Equal(t, 10, members)
}

func TestCommunitiesCommon(t *testing.T) {
	_, ts := newTestServer(t, twoTriangles(), nil)

	var resp communitiesResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/communities?method=common", &resp))
	assert.Equal(t, pipeline.MethodCommon, resp.Method)
	assert.Equal(t, map[string]int{"Motor": 0, "Generator": 0}, resp.Labels)
	assert.Equal(t, [][]string{{"Generator", "Motor"}}, resp.Communities)
	assert.Empty(t, resp.Merges)
}

func TestCommunitiesInvalidMethod(t *testing.T) {
	_, ts := newTestServer(t, twoTriangles(), nil)

	var resp errorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/communities?method=louvain", &resp))
	assert.Equal(t, "INVALID_METHOD", resp.Code)
}

func TestEmptyGraph(t *testing.T) {
	src := &staticSource{records: []recipe.Record{{Product: "Iron Ore"}}}
	_, ts := newTestServer(t, src, nil)

	var resp errorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, getJSON(t, ts.URL+"/api/communities", &resp))
	assert.Equal(t, "EMPTY_GRAPH", resp.Code)

	// The common method still answers.
	var common communitiesResponse
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/communities?method=common", &common))
	assert.Empty(t, common.Communities)
}

func TestCommonIngredients(t *testing.T) {
	_, ts := newTestServer(t, twoTriangles(), nil)

	var res overlap.Result
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/common-ingredients", &res))
	require.Len(t, res.Groups, 1)
	assert.Equal(t, 2, res.Groups[0].Count)

	var pair overlap.Pair
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/common-ingredients?a=Motor&b=Generator", &pair))
	assert.Equal(t, overlap.Pair{A: "Generator", B: "Motor", Shared: []string{"Rotor", "Stator"}}, pair)

	var missing errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/common-ingredients?a=A&b=Motor", &missing))
}

func TestLayers(t *testing.T) {
	_, ts := newTestServer(t, twoTriangles(), nil)

	var layers []layerResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/layers", &layers))
	require.Len(t, layers, 1)
	assert.Equal(t, layerResponse{Index: 0, Count: 2, Products: []string{"Generator", "Motor"}, Pairs: 1}, layers[0])
}

func TestGraph(t *testing.T) {
	_, ts := newTestServer(t, twoTriangles(), nil)

	resp, err := http.Get(ts.URL + "/api/graph")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"Generator"`)
	assert.NotContains(t, string(body), `"community": 0`, "the base graph is unlabeled")
}

func TestRefresh(t *testing.T) {
	src := twoTriangles()
	s, ts := newTestServer(t, src, nil)
	first := s.snapshot().id

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, src.loads)
	assert.NotEqual(t, first, s.snapshot().id)

	// GET is not routed for refresh.
	resp, err = http.Get(ts.URL + "/api/refresh")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type recordingHooks struct {
	observability.NoopServerHooks
	routes []string
	codes  []int
}

func (h *recordingHooks) OnResponse(_ context.Context, method, route string, code int, _ time.Duration) {
	h.routes = append(h.routes, method+" "+route)
	h.codes = append(h.codes, code)
}

func TestServerHooksUseRoutePattern(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetServerHooks(hooks)
	defer observability.Reset()

	s := New(pipeline.NewRunner(nil, nil, nil), pipeline.Options{Source: twoTriangles()}, log.New(io.Discard), nil)
	require.NoError(t, s.Refresh(context.Background()))
	h := s.Handler()

	for _, target := range []string{"/api/communities?method=common", "/api/layers", "/nope"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}
	assert.Equal(t, []string{"GET /api/communities", "GET /api/layers", "GET unmatched"}, hooks.routes)
	assert.Equal(t, []int{200, 200, 404}, hooks.codes)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := observability.NewCollector("recipegraph")
	observability.SetServerHooks(collector)
	defer observability.Reset()

	_, ts := newTestServer(t, twoTriangles(), collector.Handler())
	getJSON(t, ts.URL+"/api/layers", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `route="/api/layers"`), "metrics should label by route")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(pipeline.NewRunner(nil, nil, nil), pipeline.Options{Source: twoTriangles()}, log.New(io.Discard), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCommunitiesETag(t *testing.T) {
	s, _ := newTestServer(t, twoTriangles(), nil)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/communities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/communities", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
