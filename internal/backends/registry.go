// Package backends tracks the remote services the pipeline depends on and
// probes their health endpoints.
package backends

import (
	"context"
	"io"
	"net/http"
	"sort"
	"time"
)

// Meta describes one registered backend endpoint.
type Meta struct {
	Category  string // "stt", "llm", or "tts"
	HealthURL string // empty means the backend is not probeable (hosted API)
}

// Status is the probe result for one backend.
type Status struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Healthy  bool   `json:"healthy"`
	Detail   string `json:"detail,omitempty"`
}

// Registry holds the configured backends and probes them on demand.
type Registry struct {
	services map[string]Meta
	client   *http.Client
}

// NewRegistry creates a registry over the given backends.
func NewRegistry(services map[string]Meta) *Registry {
	return &Registry{
		services: services,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Statuses probes every registered backend and returns results sorted by name.
func (r *Registry) Statuses(ctx context.Context) []Status {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, r.probe(ctx, name, r.services[name]))
	}
	return statuses
}

func (r *Registry) probe(ctx context.Context, name string, meta Meta) Status {
	st := Status{Name: name, Category: meta.Category}
	if meta.HealthURL == "" {
		st.Healthy = true
		st.Detail = "not probed"
		return st
	}

	req, err := http.NewRequestWithContext(ctx, "GET", meta.HealthURL, nil)
	if err != nil {
		st.Detail = err.Error()
		return st
	}
	resp, err := r.client.Do(req)
	if err != nil {
		st.Detail = err.Error()
		return st
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	st.Healthy = resp.StatusCode < 400
	if !st.Healthy {
		st.Detail = resp.Status
	}
	return st
}
