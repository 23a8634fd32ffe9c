package pipeline

// Router maps backend names to implementations, with a configurable default
// used when the requested name is unknown. The remote-STT/local-STT and
// Murf/ElevenLabs variants are interchangeable strategies behind one
// interface, selected per session through a router.
type Router[T any] struct {
	backends map[string]T
	fallback string
}

// NewRouter creates a router over the given backends. fallback names the
// backend used when a requested name is not registered.
func NewRouter[T any](backends map[string]T, fallback string) *Router[T] {
	return &Router[T]{backends: backends, fallback: fallback}
}

// Pick returns the backend registered under name, or the fallback.
func (r *Router[T]) Pick(name string) (T, error) {
	if backend, ok := r.backends[name]; ok {
		return backend, nil
	}
	if backend, ok := r.backends[r.fallback]; ok {
		return backend, nil
	}
	var zero T
	return zero, Errf(KindConfig, "no backend registered for %q", name)
}

// Has reports whether a backend is registered under name.
func (r *Router[T]) Has(name string) bool {
	_, ok := r.backends[name]
	return ok
}

// Names returns the names of all registered backends.
func (r *Router[T]) Names() []string {
	names := make([]string, 0, len(r.backends))
	for k := range r.backends {
		names = append(names, k)
	}
	return names
}
