package server

import (
	"net/http"
	"slices"
	"strings"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [http.ServeMux] internally for routing. A path may be registered for several methods.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	routes      map[string]map[string]http.Handler
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         http.NewServeMux(),
		middlewares: []Middleware{},
		routes:      make(map[string]map[string]http.Handler),
	}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
//
// Middleware only wraps handlers registered after the call.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a [Handler] for the specified HTTP method and path.
//
// The handler is wrapped with all registered middleware. Requests with a method that has
// no handler for the path get 405 with an Allow header.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	wrapped := r.Apply(handler)
	method = strings.ToUpper(method)

	methods, ok := r.routes[path]
	if !ok {
		methods = make(map[string]http.Handler)
		r.routes[path] = methods
		r.mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			h, ok := methods[strings.ToUpper(req.Method)]
			if !ok {
				w.Header().Set("Allow", allowed(methods))
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.ServeHTTP(w, req)
		}))
	}
	methods[method] = wrapped
}

func allowed(methods map[string]http.Handler) string {
	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, m)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}
