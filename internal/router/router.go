// ABOUTME: Guarded router over the static navigation table
// ABOUTME: Resolves paths, applies the auth guard and keeps back history

package router

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for paths no route matches
	ErrNotFound = errors.New("no route matches path")

	// ErrRedirectLoop is returned when guard redirects never settle
	ErrRedirectLoop = errors.New("too many guard redirects")

	// ErrNoHistory is returned by Back at the first screen
	ErrNoHistory = errors.New("no previous route")
)

const maxRedirects = 5

// SessionState is what the guard needs to know about the session
type SessionState interface {
	IsAuthenticated() bool
}

// Match is a resolved route with its path parameters
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
}

// Router tracks the current route. Every navigation passes the guard
// before it is committed.
type Router struct {
	session SessionState
	logger  *zap.Logger

	mu      sync.Mutex
	current Match
	history []Match
}

// New creates a router with no current route
func New(session SessionState, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{session: session, logger: logger}
}

// Resolve finds the route for path. Static segments beat parameters, so
// /admin/models/links/view resolves to the links screen rather than to a
// model named "links".
func Resolve(path string) (Match, bool) {
	path, _, _ = strings.Cut(path, "?")
	path, _, _ = strings.Cut(path, "#")
	segments := splitPath(path)

	best := -1
	var found Match
	for _, route := range Table {
		params, score, ok := matchRoute(splitPath(route.Path), segments)
		if !ok || score <= best {
			continue
		}
		best = score
		found = Match{Route: route, Path: "/" + strings.Join(segments, "/"), Params: params}
	}
	return found, best >= 0
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchRoute(pattern, segments []string) (map[string]string, int, bool) {
	if len(pattern) != len(segments) {
		return nil, 0, false
	}
	params := map[string]string{}
	static := 0
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			value, err := url.PathUnescape(segments[i])
			if err != nil || value == "" {
				return nil, 0, false
			}
			params[p[1:]] = value
			continue
		}
		if p != segments[i] {
			return nil, 0, false
		}
		static++
	}
	return params, static, true
}

// Navigate moves to path, following guard redirects. It implements
// client.Navigator.
func (r *Router) Navigate(path string) error {
	return r.navigate(path, true)
}

// Back returns to the previous route, re-checking the guard
func (r *Router) Back() error {
	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return ErrNoHistory
	}
	prev := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.mu.Unlock()

	return r.navigate(prev.Path, false)
}

func (r *Router) navigate(path string, push bool) error {
	target := path
	for i := 0; i <= maxRedirects; i++ {
		m, ok := Resolve(target)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, target)
		}

		decision := Guard(m.Route, r.session.IsAuthenticated())
		if decision.Allowed() {
			r.commit(m, push)
			return nil
		}

		r.logger.Debug("navigation redirected",
			zap.String("from", m.Path),
			zap.String("to", decision.Redirect))
		target = decision.Redirect
	}
	return fmt.Errorf("%w: %s", ErrRedirectLoop, path)
}

func (r *Router) commit(m Match, push bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if push && r.current.Route.Name != "" && r.current.Path != m.Path {
		r.history = append(r.history, r.current)
	}
	// Signing in or out starts a fresh history
	if m.Route.Name == LoginRoute || m.Route.Name == HomeRoute {
		r.history = nil
	}
	r.current = m
}

// Current returns the committed route
func (r *Router) Current() Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// CanGoBack reports whether Back has somewhere to go
func (r *Router) CanGoBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history) > 0
}
