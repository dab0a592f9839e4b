package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"depflow/internal/graph"
	"depflow/internal/snapshot"
	"depflow/internal/tree"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Uptime    string            `json:"uptime,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// StateSummary describes a freshly applied state.
type StateSummary struct {
	Version     uint64           `json:"version"`
	Nodes       int              `json:"nodes"`
	Links       int              `json:"links"`
	Skipped     int              `json:"skipped"`
	MaxDistance int              `json:"maxDistance"`
	Options     snapshot.Options `json:"options"`
}

// QueryResponse is the result of a reachability query.
type QueryResponse struct {
	Direction graph.Direction `json:"direction"`
	ID        string          `json:"id"`
	IDs       []string        `json:"ids"`
}

// PathsResponse lists the dependency chains between two modules.
type PathsResponse struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Paths [][]string `json:"paths"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func summarize(st *snapshot.State) StateSummary {
	return StateSummary{
		Version:     st.Version,
		Nodes:       st.Tree.Len(),
		Links:       st.Graph.EdgeCount(),
		Skipped:     st.Skipped,
		MaxDistance: st.MaxDistance,
		Options:     st.Options,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.State()
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "depflow",
		Uptime:    time.Since(s.started).String(),
		Details: map[string]string{
			"go_version": runtime.Version(),
			"version":    strconv.FormatUint(st.Version, 10),
			"nodes":      strconv.Itoa(st.Tree.Len()),
		},
	})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.ctrl.State().Document())
}

func (s *Server) handlePostSnapshot(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	format := snapshot.FormatJSON
	if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		switch ct {
		case "application/yaml", "application/x-yaml", "text/yaml":
			format = snapshot.FormatYAML
		}
	}

	doc, err := snapshot.Decode(io.LimitReader(r.Body, maxBodyBytes), format)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	st := s.ctrl.Apply(doc, "api")
	s.writeJSON(w, r, http.StatusOK, summarize(st))
}

func (s *Server) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.ctrl.State().Options)
}

func (s *Server) handlePatchOptions(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var patch snapshot.OptionsPatch
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if patch.Padding != nil && *patch.Padding < 0 {
		s.writeError(w, r, http.StatusBadRequest, errors.New("padding must not be negative"))
		return
	}

	st := s.ctrl.SetState(snapshot.Partial{Options: &patch, Source: "api"})
	s.writeJSON(w, r, http.StatusOK, st.Options)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.State()
	acc := st.Children
	if v := r.URL.Query().Get("collapse"); v != "" {
		collapse, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, errors.New("collapse must be a boolean"))
			return
		}
		acc = tree.AccessorFor(collapse)
	}
	s.writeJSON(w, r, http.StatusOK, tree.Render(st.Tree.Root, acc))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	dir, err := graph.ParseDirection(r.PathValue("direction"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}
	q := r.URL.Query()
	if !q.Has("id") {
		s.writeError(w, r, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	id := q.Get("id")

	ids, err := s.ctrl.State().Query(dir, id)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, QueryResponse{Direction: dir, ID: id, IDs: ids})
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("id") {
		s.writeError(w, r, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.ctrl.State().Graph.Impact(q.Get("id")))
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("from") || !q.Has("to") {
		s.writeError(w, r, http.StatusBadRequest, errors.New("from and to are required"))
		return
	}

	var opts graph.PathOptions
	for name, dst := range map[string]*int{"max": &opts.MaxDepth, "limit": &opts.Limit} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, http.StatusBadRequest, errors.New(name+" must be a non-negative integer"))
			return
		}
		*dst = n
	}

	from, to := q.Get("from"), q.Get("to")
	paths := s.ctrl.State().Graph.Paths(from, to, opts)
	if paths == nil {
		paths = [][]string{}
	}
	s.writeJSON(w, r, http.StatusOK, PathsResponse{From: from, To: to, Paths: paths})
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.ctrl.State().Focus(r.URL.Query().Get("focus")))
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") == "true" {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}
