// Package guard intercepts every inbound request, classifies its path and
// redirects callers whose session state does not fit the route.
package guard

import (
	"errors"
	"strings"
)

// RouteClass is the derived classification of a request path.
type RouteClass int

const (
	// RoutePublic matches neither prefix set.
	RoutePublic RouteClass = iota
	// RouteProtected requires an authenticated subject.
	RouteProtected
	// RouteAuthOnly serves unauthenticated flows only.
	RouteAuthOnly
)

func (c RouteClass) String() string {
	switch c {
	case RouteProtected:
		return "protected"
	case RouteAuthOnly:
		return "auth_only"
	default:
		return "public"
	}
}

// Routes is the declarative prefix configuration evaluated on each request.
type Routes struct {
	Protected          []string
	AuthOnly           []string
	ExcludedPrefixes   []string
	ExcludedExtensions []string
}

// DefaultRoutes returns the stock prefix sets.
func DefaultRoutes() Routes {
	return Routes{
		Protected:          []string{"/dashboard", "/profile", "/settings", "/admin", "/api/protected"},
		AuthOnly:           []string{"/auth/login", "/auth/register", "/auth/forgot-password"},
		ExcludedPrefixes:   []string{"/static/", "/favicon.ico"},
		ExcludedExtensions: []string{".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico"},
	}
}

// Classifier matches paths against a frozen copy of Routes.
type Classifier struct {
	protected  []string
	authOnly   []string
	excluded   []string
	extensions []string
}

// NewClassifier copies routes so later mutation of the caller's slices has no effect.
func NewClassifier(routes Routes) (*Classifier, error) {
	c := &Classifier{
		protected:  cleanPrefixes(routes.Protected),
		authOnly:   cleanPrefixes(routes.AuthOnly),
		excluded:   cleanPrefixes(routes.ExcludedPrefixes),
		extensions: cleanPrefixes(routes.ExcludedExtensions),
	}
	if len(c.protected) == 0 {
		return nil, errors.New("guard: at least one protected prefix required")
	}
	return c, nil
}

// Excluded reports whether path bypasses the guard entirely.
func (c *Classifier) Excluded(path string) bool {
	if matchPrefix(path, c.excluded) {
		return true
	}
	for _, ext := range c.extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Classify returns the route class of path. Matching is case-sensitive and the first match wins.
func (c *Classifier) Classify(path string) RouteClass {
	switch {
	case matchPrefix(path, c.protected):
		return RouteProtected
	case matchPrefix(path, c.authOnly):
		return RouteAuthOnly
	default:
		return RoutePublic
	}
}

func matchPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func cleanPrefixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
