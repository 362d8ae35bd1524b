package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
	"github.com/tenantdesk/tenantdesk/internal/shared"
)

// RedirectParam carries the original path to the login page.
const RedirectParam = "redirectTo"

// Decision outcomes reported to the Recorder.
const (
	OutcomePass          = "pass"
	OutcomeLoginRedirect = "redirect_login"
	OutcomeHomeRedirect  = "redirect_landing"
)

// SessionProvider validates, and possibly rotates, the caller's session.
type SessionProvider interface {
	ValidateOrRefresh(ctx context.Context, cookies []*http.Cookie) (shared.Resolution, error)
}

// Recorder observes guard decisions.
type Recorder interface {
	ObserveGuardDecision(class, outcome string)
	ObserveSessionFailure()
}

// Config holds the guard's fixed settings.
type Config struct {
	Routes         Routes
	LoginPath      string
	LandingPath    string
	SessionTimeout time.Duration
}

// Guard is the request-interception middleware.
type Guard struct {
	classifier  *Classifier
	sessions    SessionProvider
	logger      *slog.Logger
	recorder    Recorder
	loginPath   string
	landingPath string
	timeout     time.Duration
}

// New builds a Guard. recorder may be nil.
func New(cfg Config, sessions SessionProvider, logger *slog.Logger, recorder Recorder) (*Guard, error) {
	if sessions == nil {
		return nil, errors.New("guard: session provider required")
	}
	classifier, err := NewClassifier(cfg.Routes)
	if err != nil {
		return nil, err
	}
	if cfg.LoginPath == "" || cfg.LandingPath == "" {
		return nil, errors.New("guard: login and landing paths required")
	}
	if classifier.Classify(cfg.LoginPath) == RouteProtected {
		return nil, errors.New("guard: login path must not be protected")
	}
	if classifier.Classify(cfg.LandingPath) == RouteAuthOnly {
		return nil, errors.New("guard: landing path must not be auth-only")
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		classifier:  classifier,
		sessions:    sessions,
		logger:      logger,
		recorder:    recorder,
		loginPath:   cfg.LoginPath,
		landingPath: cfg.LandingPath,
		timeout:     timeout,
	}, nil
}

// Middleware gates every request before it reaches a handler.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if g.classifier.Excluded(path) {
			next.ServeHTTP(w, r)
			return
		}

		res := g.resolve(r)
		// Rotated or cleared cookies go out on every branch below.
		for _, c := range res.Cookies {
			http.SetCookie(w, c)
		}

		class := g.classifier.Classify(path)
		switch {
		case res.Subject == nil && class == RouteProtected:
			g.record(class, OutcomeLoginRedirect)
			http.Redirect(w, r, g.loginURL(path), http.StatusSeeOther)
			return
		case res.Subject != nil && class == RouteAuthOnly:
			g.record(class, OutcomeHomeRedirect)
			http.Redirect(w, r, g.landingPath, http.StatusSeeOther)
			return
		}

		g.record(class, OutcomePass)
		ctx := r.Context()
		if res.Subject != nil {
			ctx = rbac.ContextWithSubject(ctx, res.Subject)
			ctx = shared.ContextWithLoginID(ctx, res.LoginID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoginPath returns the configured login path.
func (g *Guard) LoginPath() string {
	return g.loginPath
}

// LandingPath returns the default authenticated landing path.
func (g *Guard) LandingPath() string {
	return g.landingPath
}

type resolution struct {
	res shared.Resolution
	err error
}

// resolve never fails: provider errors and timeouts yield an anonymous caller.
// The deadline holds even when the provider ignores ctx.
func (g *Guard) resolve(r *http.Request) shared.Resolution {
	ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
	defer cancel()

	done := make(chan resolution, 1)
	cookies := r.Cookies()
	go func() {
		res, err := g.sessions.ValidateOrRefresh(ctx, cookies)
		done <- resolution{res: res, err: err}
	}()

	var out resolution
	select {
	case <-ctx.Done():
		out.err = ctx.Err()
		out.res.Cookies = g.lateCookies(done)
	case out = <-done:
	}
	res, err := out.res, out.err
	if err != nil {
		g.logger.Warn("session validation failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		if g.recorder != nil {
			g.recorder.ObserveSessionFailure()
		}
		return shared.Resolution{Cookies: out.res.Cookies}
	}
	if res.Subject != nil && !res.Subject.Role.Valid() {
		res.Subject = nil
	}
	return res
}

// lateCookies keeps the cookies of a provider call that completed just past the deadline,
// so a rotation committed in the store still reaches the client. The caller stays anonymous.
func (g *Guard) lateCookies(done <-chan resolution) []*http.Cookie {
	wait := time.NewTimer(g.timeout / 4)
	defer wait.Stop()
	select {
	case late := <-done:
		if late.err == nil {
			return late.res.Cookies
		}
	case <-wait.C:
	}
	return nil
}

func (g *Guard) loginURL(path string) string {
	q := url.Values{}
	q.Set(RedirectParam, path)
	return g.loginPath + "?" + q.Encode()
}

func (g *Guard) record(class RouteClass, outcome string) {
	if g.recorder != nil {
		g.recorder.ObserveGuardDecision(class.String(), outcome)
	}
}
