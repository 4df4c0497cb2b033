package obs

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

type routePatternKey struct{}

type fieldsKey struct{}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

// routeOf resolves the route label for r, falling back to chi's routing
// context and then to fallback.
func routeOf(r *http.Request, fallback string) string {
	if route := RoutePatternFromContext(r.Context()); route != "" {
		return route
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if route := rc.RoutePattern(); route != "" {
			return route
		}
	}
	return fallback
}

// Fields collects values handlers attach to the current request log line,
// such as the checkout id a scan was applied to.
type Fields struct {
	mu     sync.Mutex
	keys   []string
	values map[string]string
}

// WithFields installs an empty Fields bag on ctx.
func WithFields(ctx context.Context) (context.Context, *Fields) {
	f := &Fields{values: map[string]string{}}
	return context.WithValue(ctx, fieldsKey{}, f), f
}

// Annotate records key=value on the request bag. It is a no-op when the
// request is not wrapped by RequestLogger.
func Annotate(ctx context.Context, key, value string) {
	f, _ := ctx.Value(fieldsKey{}).(*Fields)
	if f == nil || key == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Each calls fn for every annotation in insertion order.
func (f *Fields) Each(fn func(key, value string)) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		fn(k, f.values[k])
	}
}
