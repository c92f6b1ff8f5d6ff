// Package httpx exposes the REST API over gorilla/mux: account and session
// routes, avatars, tasks, health and Prometheus metrics.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/taskkeeper/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	rateWindow         = time.Minute
	healthCheckTimeout = 2 * time.Second
	maxJSONBody        = 1 << 20
)

// UserService is what the user routes need from services.UserService.
type UserService interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.User, string, error)
	Login(ctx context.Context, in services.LoginInput) (*models.User, string, error)
	Authenticate(ctx context.Context, token string) (*services.Identity, error)
	Logout(ctx context.Context, id *services.Identity) error
	LogoutAll(ctx context.Context, id *services.Identity) error
	Profile(ctx context.Context, id *services.Identity) *models.User
	UpdateProfile(ctx context.Context, id *services.Identity, fields map[string]json.RawMessage) (*models.User, error)
	Delete(ctx context.Context, id *services.Identity) (*models.User, error)
	SetAvatar(ctx context.Context, id *services.Identity, filename string, data []byte) error
	DeleteAvatar(ctx context.Context, id *services.Identity) error
	Avatar(ctx context.Context, userID string) ([]byte, error)
}

// TaskService is what the task routes need from services.TaskService.
type TaskService interface {
	Create(ctx context.Context, ownerID string, in services.NewTaskInput) (*models.Task, error)
	List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error)
	Get(ctx context.Context, ownerID, id string) (*models.Task, error)
	Update(ctx context.Context, ownerID, id string, fields map[string]json.RawMessage) (*models.Task, error)
	Delete(ctx context.Context, ownerID, id string) (*models.Task, error)
}

// Options carries the tunables of the router. TrustedProxies lists the
// peers whose X-Forwarded-For header is believed; with none, the socket
// peer alone identifies a client.
type Options struct {
	SignupRateLimit int
	LoginRateLimit  int
	MaxAvatarBytes  int64
	DBHealth        func(context.Context) error
	TrustedProxies  []netip.Prefix
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *mux.Router
	log      logging.Logger
	users    UserService
	tasks    TaskService
	limiter  ratelimit.Limiter
	opts     Options
	registry *prometheus.Registry
	metrics  *metrics
}

// NewRouter assembles routes with dependencies. A nil limiter means a
// process-local one.
func NewRouter(log logging.Logger, users UserService, tasks TaskService, limiter ratelimit.Limiter, opts Options) *Router {
	if limiter == nil {
		limiter = ratelimit.NewMemory()
	}
	r := &Router{
		mux:      mux.NewRouter(),
		log:      log.With("module", "http"),
		users:    users,
		tasks:    tasks,
		limiter:  limiter,
		opts:     opts,
		registry: prometheus.NewRegistry(),
	}
	r.metrics = newMetrics(r.registry)
	r.register()
	return r
}

// ServeHTTP delegates to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases the rate limiter.
func (r *Router) Close() error {
	return r.limiter.Close()
}

func (r *Router) register() {
	r.mux.Use(r.audit)
	r.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.mux.HandleFunc("/healthz", r.handleHealthz).Methods(http.MethodGet)
	r.mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.mux.HandleFunc("/users", r.withRateLimit("signup", r.opts.SignupRateLimit, r.handleSignup)).Methods(http.MethodPost)
	r.mux.HandleFunc("/users/login", r.withRateLimit("login", r.opts.LoginRateLimit, r.handleLogin)).Methods(http.MethodPost)

	protected := r.mux.NewRoute().Subrouter()
	protected.Use(r.guard)

	protected.HandleFunc("/users/logout", r.handleLogout).Methods(http.MethodPost)
	protected.HandleFunc("/users/logoutAll", r.handleLogoutAll).Methods(http.MethodPost)
	protected.HandleFunc("/users/me", r.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", r.handleUpdateMe).Methods(http.MethodPatch)
	protected.HandleFunc("/users/me", r.handleDeleteMe).Methods(http.MethodDelete)
	protected.HandleFunc("/users/me/avatar", r.handleUploadAvatar).Methods(http.MethodPost)
	protected.HandleFunc("/users/me/avatar", r.handleDeleteAvatar).Methods(http.MethodDelete)

	protected.HandleFunc("/tasks", r.handleCreateTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks", r.handleListTasks).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{id}", r.handleGetTask).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{id}", r.handleUpdateTask).Methods(http.MethodPatch)
	protected.HandleFunc("/tasks/{id}", r.handleDeleteTask).Methods(http.MethodDelete)

	r.mux.HandleFunc("/users/{id}/avatar", r.handleGetAvatar).Methods(http.MethodGet)
}
