package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/matzehuels/recipegraph/pkg/buildinfo"
	"github.com/matzehuels/recipegraph/pkg/cache"
	"github.com/matzehuels/recipegraph/pkg/community"
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/overlap"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type healthResponse struct {
	Status   string         `json:"status"`
	Build    buildinfo.Info `json:"build"`
	Snapshot string         `json:"snapshot,omitempty"`
	Nodes    int            `json:"nodes"`
	Edges    int            `json:"edges"`
	Skipped  int            `json:"skipped"`
}

// communitiesResponse lists the members of every community by name.
type communitiesResponse struct {
	Snapshot    string            `json:"snapshot"`
	Method      string            `json:"method"`
	Q           float64           `json:"q"`
	Communities [][]string        `json:"communities"`
	Labels      map[string]int    `json:"labels"`
	Merges      []community.Merge `json:"merges,omitempty"`
	Level       int               `json:"level,omitempty"`
}

type layerResponse struct {
	Index    int      `json:"index"`
	Count    int      `json:"count"`
	Products []string `json:"products"`
	Pairs    int      `json:"pairs"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeError maps error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch rgerrors.GetCode(err) {
	case rgerrors.ErrCodeInvalidInput, rgerrors.ErrCodeInvalidMethod, rgerrors.ErrCodeInvalidFormat:
		status = http.StatusBadRequest
	case rgerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case rgerrors.ErrCodeEmptyGraph:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{
		Error: rgerrors.UserMessage(err),
		Code:  string(rgerrors.GetCode(err)),
	})
}

// current returns the snapshot or writes 503 when none is loaded yet.
func (s *Server) current(w http.ResponseWriter) *snapshot {
	snap := s.snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no snapshot loaded"})
	}
	return snap
}

// detection picks the method from the query string, defaulting to modularity.
func (s *Server) detection(w http.ResponseWriter, r *http.Request, snap *snapshot) *pipeline.Detection {
	method := r.URL.Query().Get("method")
	if method == "" {
		method = pipeline.DefaultMethod
	}
	if err := pipeline.ValidateMethod(method); err != nil {
		writeError(w, err)
		return nil
	}
	if err, ok := snap.errs[method]; ok {
		writeError(w, err)
		return nil
	}
	return snap.detections[method]
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading", Build: buildinfo.Get()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Build:    buildinfo.Get(),
		Snapshot: snap.id,
		Nodes:    snap.graph.NodeCount(),
		Edges:    snap.graph.EdgeCount(),
		Skipped:  len(snap.report.Skipped),
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := graph.Write(snap.graph, w); err != nil {
		s.logger.Warn("write graph", "err", err)
	}
}

func (s *Server) handleCommunities(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	det := s.detection(w, r, snap)
	if det == nil {
		return
	}

	resp := communitiesResponse{
		Snapshot:    snap.id,
		Method:      det.Method,
		Q:           det.Q,
		Communities: groupByLabel(det.Labeled),
		Labels:      assigned(det.Labeled),
	}
	if det.Modularity != nil {
		resp.Merges = det.Modularity.Merges
		resp.Level = det.Modularity.Level
	}
	if etag, err := cache.HashJSON(resp); err == nil {
		etag = `"` + etag[:16] + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommonIngredients(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	if p, q := r.URL.Query().Get("a"), r.URL.Query().Get("b"); p != "" || q != "" {
		shared, ok := snap.overlap.Lookup(p, q)
		if !ok {
			writeError(w, rgerrors.New(rgerrors.ErrCodeNotFound, "products %q and %q share no ingredients", p, q))
			return
		}
		a, b := p, q
		if b < a {
			a, b = b, a
		}
		writeJSON(w, http.StatusOK, overlap.Pair{A: a, B: b, Shared: shared})
		return
	}
	writeJSON(w, http.StatusOK, snap.overlap)
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	det := snap.detections[pipeline.MethodCommon]
	layers := make([]layerResponse, 0)
	if det != nil {
		for _, l := range det.Layering.Layers {
			names := make([]string, 0, l.Graph.NodeCount())
			for _, n := range l.Graph.Nodes() {
				names = append(names, n.Name)
			}
			sort.Strings(names)
			layers = append(layers, layerResponse{
				Index:    l.Index,
				Count:    l.Count,
				Products: names,
				Pairs:    l.Graph.EdgeCount(),
			})
		}
	}
	writeJSON(w, http.StatusOK, layers)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	det := s.detection(w, r, snap)
	if det == nil {
		return
	}

	opts := s.opts
	opts.Method = det.Method
	opts.Formats = []string{pipeline.FormatSVG}
	artifacts, hit, err := s.runner.RenderWithCacheInfo(r.Context(), det.Labeled, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if hit {
		w.Header().Set("X-Cache", "hit")
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(artifacts[pipeline.FormatSVG])
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		s.logger.Error("refresh failed", "err", err)
		writeError(w, err)
		return
	}
	s.handleHealth(w, r)
}

// groupByLabel returns the member names of each label in label order.
func groupByLabel(g *graph.Graph) [][]string {
	maxLabel := -1
	for _, n := range g.Nodes() {
		maxLabel = max(maxLabel, n.Community)
	}
	groups := make([][]string, maxLabel+1)
	for _, n := range g.Nodes() {
		if n.Community != graph.Unassigned {
			groups[n.Community] = append(groups[n.Community], n.Name)
		}
	}
	out := groups[:0]
	for _, grp := range groups {
		if len(grp) > 0 {
			sort.Strings(grp)
			out = append(out, grp)
		}
	}
	return out
}

// assigned returns the labels of every labeled node.
func assigned(g *graph.Graph) map[string]int {
	labels := make(map[string]int, g.NodeCount())
	for name, label := range g.Labels() {
		if label != graph.Unassigned {
			labels[name] = label
		}
	}
	return labels
}
