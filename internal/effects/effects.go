package effects

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/api"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/identity"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/notify"
)

// DefaultCacheTTL is how long a users list load stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// Routes navigated to by effects.
const (
	RouteHome      = "/"
	RouteDashboard = "/dashboard"
	RouteUsers     = "/users"
	RouteRequests  = "/service-requests"
)

// UserRepository is the user half of the backend. *api.Client implements it.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	CurrentUser(ctx context.Context) (model.User, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	UpdateUser(ctx context.Context, id string, changes model.UserChanges) (model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ServiceRequestRepository is the service request half of the backend.
type ServiceRequestRepository interface {
	ListServiceRequests(ctx context.Context) ([]model.ServiceRequest, error)
	GetServiceRequest(ctx context.Context, id string) (model.ServiceRequest, error)
	CreateServiceRequest(ctx context.Context, r model.ServiceRequest) (model.ServiceRequest, error)
	UpdateServiceRequest(ctx context.Context, id string, changes model.ServiceRequestChanges) (model.ServiceRequest, error)
	DeleteServiceRequest(ctx context.Context, id string) error
}

// ThemeStore persists the theme. *theme.Service implements it.
type ThemeStore interface {
	Load(ctx context.Context) (model.Theme, error)
	Save(ctx context.Context, t model.Theme) error
}

// Navigator performs navigation requested by effects.
type Navigator interface {
	// Navigate moves to an in-app route.
	Navigate(path string)
	// Redirect leaves the app for an external URL, e.g. the provider login page.
	Redirect(url string)
}

// Deps are the collaborators of the effects. Groups whose dependency is nil
// are not registered.
type Deps struct {
	Users     UserRepository
	Requests  ServiceRequestRepository
	Auth      identity.Provider
	Theme     ThemeStore
	Notifier  notify.Notifier
	Navigator Navigator

	// Now stamps LoadedAt and drives the cache gate. Defaults to time.Now.
	Now func() time.Time
	// CacheTTL defaults to DefaultCacheTTL.
	CacheTTL time.Duration
	// AuthTimeout bounds the session check. Defaults to identity.DefaultCheckTimeout.
	AuthTimeout time.Duration
}

type handlers struct {
	Deps
}

// Register binds every effect to e.
func Register(e *engine.Engine, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = DefaultCacheTTL
	}
	if d.AuthTimeout <= 0 {
		d.AuthTimeout = identity.DefaultCheckTimeout
	}
	if d.Notifier == nil {
		d.Notifier = notify.Discard
	}
	if d.Navigator == nil {
		d.Navigator = logNavigator{}
	}
	h := &handlers{Deps: d}

	h.registerApp(e)
	if d.Users != nil {
		h.registerUsers(e)
	}
	if d.Requests != nil {
		h.registerRequests(e)
	}
	if d.Auth != nil {
		h.registerAuth(e)
	}
}

// failureOf converts err into a failure payload. API errors keep their
// status; anything else is reported with kind.
func failureOf(err error, kind action.FailureKind) action.Failure {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Failure()
	}
	return action.Failure{Kind: kind, Message: err.Error()}
}

func invalid(msg string) action.Failure {
	return action.Failure{Kind: action.FailureValidation, Message: msg}
}

func (h *handlers) toastError(ctx context.Context, what string, f action.Failure) {
	h.Notifier.Notify(ctx, notify.Toast{Level: notify.LevelError, Message: what + ": " + f.Message})
}

func (h *handlers) toastSuccess(ctx context.Context, msg string) {
	h.Notifier.Notify(ctx, notify.Toast{Level: notify.LevelSuccess, Message: msg})
}

// logNavigator is used when no navigator is configured.
type logNavigator struct{}

func (logNavigator) Navigate(path string) { slog.Debug("navigate", "path", path) }
func (logNavigator) Redirect(url string)  { slog.Info("redirect", "url", url) }
