package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/app"
	"github.com/roach88/fmdesk/internal/notify"
)

// session is an open app plus what the CLI needs around it.
type session struct {
	*app.App
	cfg app.Config
	nav *navigator
}

// openSession opens and starts the app described by the merged configuration.
// The caller must Close it.
func openSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions, extra ...app.Option) (*session, error) {
	cfg, err := opts.appConfig()
	if err != nil {
		return nil, err
	}

	var follow *http.Client
	if opts.v.GetBool("follow_redirects") {
		follow = &http.Client{Timeout: 30 * time.Second}
	}
	nav := newNavigator(cmd.ErrOrStderr(), follow)

	appOpts := []app.Option{
		app.WithNavigator(nav),
		app.WithNotifier(notify.NewLog(nil)),
	}
	a, err := app.Open(ctx, cfg, append(appOpts, extra...)...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open session", err)
	}
	a.Start(ctx)
	return &session{App: a, cfg: cfg, nav: nav}, nil
}

// run dispatches act, waits for every effect it caused and returns the
// actions logged meanwhile.
func (s *session) run(ctx context.Context, act action.Action) ([]action.Envelope, error) {
	before, err := s.Store.LastSeq(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read action log", err)
	}
	if err := s.Do(ctx, act); err != nil {
		return nil, WrapExitError(ExitFailure, "action did not settle", err)
	}
	envs, err := s.Store.ReadLog(ctx, before, 0)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read action log", err)
	}
	return envs, nil
}

// failureIn returns the first failure among envs.
func failureIn(envs []action.Envelope) (action.Type, *action.Failure) {
	for _, env := range envs {
		if !strings.HasSuffix(string(env.Type), " Failure") {
			continue
		}
		var p struct {
			Failure action.Failure `json:"failure"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			slog.Warn("unreadable failure payload", "type", env.Type, "error", err)
			continue
		}
		return env.Type, &p.Failure
	}
	return "", nil
}

// logged reports whether an action of type t is among envs.
func logged(envs []action.Envelope, t action.Type) bool {
	for _, env := range envs {
		if env.Type == t {
			return true
		}
	}
	return false
}

// checkFailure reports the first failure in envs through f and returns the
// command error, or nil when envs hold none.
func checkFailure(f *OutputFormatter, envs []action.Envelope) error {
	typ, failure := failureIn(envs)
	if failure == nil {
		return nil
	}
	code := CodeAPI
	switch {
	case failure.Kind == action.FailureAuth:
		code = CodeAuth
	case failure.Status == http.StatusNotFound:
		code = CodeNotFound
	}
	return f.Fail(code, fmt.Sprintf("%s: %s", typ, failure.Message), failure)
}

// navigator prints in-app navigation and provider redirects. With a client it
// follows provider redirects itself and hands back the callback, which is how
// the CLI signs in against a provider that needs no browser.
type navigator struct {
	out       io.Writer
	client    *http.Client
	callbacks chan action.AuthCallback
}

func newNavigator(out io.Writer, follow *http.Client) *navigator {
	n := &navigator{out: out, callbacks: make(chan action.AuthCallback, 1)}
	if follow != nil {
		c := *follow
		c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
		n.client = &c
	}
	return n
}

func (n *navigator) Navigate(path string) {
	slog.Debug("navigate", "path", path)
}

func (n *navigator) Redirect(target string) {
	if n.client == nil {
		fmt.Fprintf(n.out, "Open this URL in your browser:\n  %s\n", target)
		return
	}
	resp, err := n.client.Get(target)
	if err != nil {
		slog.Warn("redirect failed", "error", err)
		return
	}
	resp.Body.Close()

	loc, err := resp.Location()
	if err != nil {
		if !errors.Is(err, http.ErrNoLocation) {
			slog.Warn("bad redirect location", "error", err)
		}
		return
	}
	n.deliver(loc.Query())
}

func (n *navigator) deliver(q url.Values) {
	if q.Get("code") == "" {
		return
	}
	select {
	case n.callbacks <- action.AuthCallback{Code: q.Get("code"), State: q.Get("state")}:
	default:
		slog.Warn("dropping extra login callback")
	}
}

// waitCallback blocks until the provider redirected back or ctx ends.
func (n *navigator) waitCallback(ctx context.Context) (action.AuthCallback, error) {
	select {
	case cb := <-n.callbacks:
		return cb, nil
	case <-ctx.Done():
		return action.AuthCallback{}, ctx.Err()
	}
}

// listenCallback serves the redirect URL and delivers the provider's
// callback to nav. The returned func stops the listener.
func listenCallback(redirectURL string, nav *navigator) (func(), error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse redirect url: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	r := chi.NewRouter()
	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if msg := q.Get("error"); msg != "" {
			slog.Warn("provider returned an error", "error", msg, "description", q.Get("error_description"))
			http.Error(w, "Sign-in failed: "+msg, http.StatusBadRequest)
			return
		}
		nav.deliver(q)
		fmt.Fprintln(w, "Signed in to fmdesk. You can close this window.")
	})

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for callback: %w", err)
	}
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("callback listener stopped", "error", err)
		}
	}()
	slog.Debug("waiting for login callback", "addr", ln.Addr().String(), "path", path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
