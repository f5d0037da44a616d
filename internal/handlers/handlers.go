package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/analytics"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credits"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/errorlog"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/google"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/planner"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/proxy"
)

// Deps is everything the HTTP layer talks to. Nil members disable the routes
// that need them (they answer 503) so tests can wire only what they exercise.
type Deps struct {
	DB                 *sql.DB
	Planner            planner.Store
	Credentials        credentials.Resolver
	// ServiceCredentials is the operator's own Google token. Only the sheets
	// routes fall back to it.
	ServiceCredentials credentials.Resolver
	Sessions           credentials.Writer
	Google             google.Factory
	Proxy              *proxy.Forwarder
	Credits            credits.Checker
	Stats              *analytics.Runner
	Errors             errorlog.Recorder

	// ContentDir is the root for /api/local/files|read|write.
	ContentDir string
	// StorageStrategy is "local" or "drive" for /api/storage/write.
	StorageStrategy string
	ImageClient     *http.Client
	// ProviderKeys reports which third-party keys are configured, never their values.
	ProviderKeys map[string]bool
	Now          func() time.Time
}

type Handler struct {
	db          *sql.DB
	planner     planner.Store
	creds       credentials.Resolver
	service     credentials.Resolver
	sessions    credentials.Writer
	google      google.Factory
	proxy       *proxy.Forwarder
	credits     credits.Checker
	stats       *analytics.Runner
	errs        errorlog.Recorder
	contentDir  string
	storage     string
	imageClient *http.Client
	keys        map[string]bool
	now         func() time.Time
	rt          *realtimeHub
}

func New(d Deps) *Handler {
	h := &Handler{
		db:          d.DB,
		planner:     d.Planner,
		creds:       d.Credentials,
		service:     d.ServiceCredentials,
		sessions:    d.Sessions,
		google:      d.Google,
		proxy:       d.Proxy,
		credits:     d.Credits,
		stats:       d.Stats,
		errs:        d.Errors,
		contentDir:  d.ContentDir,
		storage:     d.StorageStrategy,
		imageClient: d.ImageClient,
		keys:        d.ProviderKeys,
		now:         d.Now,
		rt:          newRealtimeHub(),
	}
	if h.contentDir == "" {
		h.contentDir = "content"
	}
	if h.storage == "" {
		h.storage = "local"
	}
	if h.imageClient == nil {
		h.imageClient = &http.Client{Timeout: 30 * time.Second}
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.stats == nil {
		h.stats = &analytics.Runner{}
	}
	h.stats.EnsureDefaults()
	return h
}

// Health answers {ok:true}; ?verbose=1 adds which provider keys are configured.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if queryParam(r, "verbose") == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	keys := h.keys
	if keys == nil {
		keys = map[string]bool{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"providers": keys,
		"database":  h.db != nil,
	})
}

func (h *Handler) unavailable(w http.ResponseWriter, what string) {
	writeJSONError(w, http.StatusServiceUnavailable, what+" is not configured")
}
