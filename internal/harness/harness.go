package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/app"
	"github.com/roach88/fmdesk/internal/identity"
	"github.com/roach88/fmdesk/internal/mockapi"
	"github.com/roach88/fmdesk/internal/notify"
	"github.com/roach88/fmdesk/internal/testutil"
)

// ClientID is the OAuth client the harness registers with the mock provider.
const ClientID = "fmdesk-harness"

// DefaultStepTimeout bounds how long one step may take to settle.
const DefaultStepTimeout = 10 * time.Second

// Harness is the test execution engine.
// It runs one scenario against a fresh in-memory session and mock backend,
// with a settable wall clock and numbered flow tokens.
type Harness struct {
	app    *app.App
	mock   *mockapi.Server
	nav    *navigator
	clock  *testutil.Clock
	toasts *notify.Recorder
	reg    *action.Registry
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database and mock backend for
// isolation. Deterministic helpers ensure reproducible traces.
//
// Execution flow:
// 1. Start the mock backend and open a session against it
// 2. Queue scenario faults and select the login identity
// 3. Execute setup steps
// 4. Execute flow steps with expect validation
// 5. Read the action log into the trace and evaluate assertions
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	clock := testutil.NewClock(scenario.StartTime())
	mock, err := mockapi.New(mockapi.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create mock backend: %w", err)
	}
	srv := httptest.NewServer(mock)
	defer srv.Close()

	if scenario.LoginAs != "" {
		if err := mock.LoginAs(scenario.LoginAs); err != nil {
			return nil, err
		}
	}
	for _, f := range scenario.Faults {
		mock.FailNext(f)
	}

	hc := srv.Client()
	nav := newNavigator(hc)
	toasts := &notify.Recorder{}
	prefix := scenario.FlowPrefix
	if prefix == "" {
		prefix = scenario.Name
	}

	cfg := app.Config{
		APIURL: srv.URL,
		DB:     ":memory:",
		Auth: identity.Config{
			Domain:         srv.URL,
			ClientID:       ClientID,
			RedirectURL:    srv.URL + "/callback",
			LogoutReturnTo: srv.URL + "/",
		},
	}
	a, err := app.Open(ctx, cfg,
		app.WithHTTPClient(hc),
		app.WithNavigator(nav),
		app.WithNotifier(toasts),
		app.WithNow(clock.Now),
		app.WithFlowGenerator(testutil.NewFlowGenerator(prefix)),
		app.WithRetryWait(time.Millisecond),
		app.Fresh(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer a.Close()
	nav.dispatch = a.Engine.Dispatch
	a.Start(ctx)

	h := &Harness{
		app:    a,
		mock:   mock,
		nav:    nav,
		clock:  clock,
		toasts: toasts,
		reg:    action.NewRegistry(),
		logger: slog.Default().With("scenario", scenario.Name),
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	envs, err := a.Store.ReadLog(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, env := range envs {
		result.AddTrace(traceEvent(env))
	}

	actx := &AssertionContext{
		Ctx:   ctx,
		Query: h.query,
		Hits:  mock.Hits,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSetup dispatches every setup action and waits for it to settle.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep) error {
	for i, step := range setup {
		act, err := decodeStep(h.reg, step.Dispatch, step.Payload)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if err := h.dispatch(ctx, act); err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		h.logger.Debug("setup step completed", "step", i, "action", step.Dispatch)
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Each step:
// 1. Queues the step's faults on the mock backend
// 2. Advances the clock, or dispatches the action and waits for the engine
//    to go idle
// 3. Checks the actions logged since the step began against expect
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		for _, f := range step.Faults {
			h.mock.FailNext(f)
		}

		if step.Advance != "" {
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			now := h.clock.Advance(d)
			h.logger.Debug("clock advanced", "step", i, "now", now)
			continue
		}

		act, err := decodeStep(h.reg, step.Dispatch, step.Payload)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		before, err := h.app.Store.LastSeq(ctx)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		if err := h.dispatch(ctx, act); err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		if step.Expect != nil {
			logged, err := h.app.Store.ReadLog(ctx, before, 0)
			if err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			if msg := checkExpect(logged, step.Expect); msg != "" {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Dispatch, msg))
			}
		}

		h.logger.Debug("flow step completed", "step", i, "action", step.Dispatch)
	}

	return nil
}

func (h *Harness) dispatch(ctx context.Context, act action.Action) error {
	stepCtx, cancel := context.WithTimeout(ctx, DefaultStepTimeout)
	defer cancel()
	return h.app.Do(stepCtx, act)
}

// checkExpect returns a failure message, or "" when the expected action was
// logged with a matching payload.
func checkExpect(logged []action.Envelope, exp *ExpectClause) string {
	want, err := normalize(exp.Payload)
	if err != nil {
		return err.Error()
	}
	found := false
	for _, env := range logged {
		if string(env.Type) != exp.Emits {
			continue
		}
		found = true
		if exp.Payload == nil {
			return ""
		}
		if _, ok := matchSubset(traceEvent(env).Payload, want, "payload"); ok {
			return ""
		}
	}
	if found {
		return fmt.Sprintf("%s emitted with a different payload, want %v", exp.Emits, exp.Payload)
	}
	types := make([]string, len(logged))
	for i, env := range logged {
		types[i] = string(env.Type)
	}
	return fmt.Sprintf("expected %s, step logged %v", exp.Emits, types)
}

// traceEvent converts a logged envelope into its redacted trace form.
func traceEvent(env action.Envelope) TraceEvent {
	ev := TraceEvent{
		Seq:    env.Seq,
		Flow:   env.Flow,
		Type:   env.Type,
		Effect: env.Effect,
	}
	var payload any
	if err := json.Unmarshal(env.Payload, &payload); err == nil {
		if m, ok := payload.(map[string]any); !ok || len(m) > 0 {
			ev.Payload = action.Redact(payload)
		}
	}
	return ev
}

// navigator records navigation and completes provider logins: when a
// redirect lands on the callback with a code, it dispatches the callback.
type navigator struct {
	client   *http.Client
	dispatch func(action.Action) (string, error)

	mu        sync.Mutex
	paths     []string
	redirects []string
}

// Navigation is what the navigator saw, as read by the "navigation" query.
type Navigation struct {
	Paths     []string `json:"paths"`
	Redirects []string `json:"redirects"`
}

func newNavigator(hc *http.Client) *navigator {
	c := *hc
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &navigator{client: &c}
}

func (n *navigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navigator) Redirect(target string) {
	u, err := url.Parse(target)
	if err != nil {
		slog.Warn("unparseable redirect", "error", err)
		return
	}
	n.mu.Lock()
	n.redirects = append(n.redirects, u.Path)
	n.mu.Unlock()

	resp, err := n.client.Get(target)
	if err != nil {
		slog.Warn("redirect failed", "path", u.Path, "error", err)
		return
	}
	resp.Body.Close()

	loc, err := resp.Location()
	if errors.Is(err, http.ErrNoLocation) {
		return
	}
	if err != nil {
		slog.Warn("bad redirect location", "path", u.Path, "error", err)
		return
	}
	q := loc.Query()
	if q.Get("code") == "" || n.dispatch == nil {
		return
	}
	if _, err := n.dispatch(action.AuthCallback{Code: q.Get("code"), State: q.Get("state")}); err != nil {
		slog.Warn("callback dispatch failed", "error", err)
	}
}

func (n *navigator) snapshot() Navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Navigation{
		Paths:     append([]string{}, n.paths...),
		Redirects: append([]string{}, n.redirects...),
	}
}
