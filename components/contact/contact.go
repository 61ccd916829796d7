// components/contact/contact.go
//
// Contact component: JSON API over form sessions.
//
// Context
// -------
// The marketing site's contact form talks to this component only.  Each
// browser tab opens a session, streams field edits into it, and submits.
// The session controller owns every rule; handlers translate HTTP to
// controller calls and back.
//
// Routes (all under /api/contact)
// -------------------------------
//
//	GET    /options                     – service and budget select values
//	GET    /token                       – fresh CSRF token
//	POST   /                            – one-shot submit (no session)
//	POST   /sessions                    – open a session
//	GET    /sessions/current            – session named by the cookie
//	GET    /sessions/{id}               – current view
//	PUT    /sessions/{id}/fields/{field} – edit one field
//	POST   /sessions/{id}/submit        – submit
//	POST   /sessions/{id}/reset         – reset
//	DELETE /sessions/{id}               – close
//	GET    /sessions/{id}/ws            – websocket stream of views
//
// Mutating requests must carry a valid X-CSRF-Token header.
//
//------------------------------------------------------------------------------

package contact

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/neurion/internal/component"
	"github.com/yanizio/neurion/internal/form"
	"github.com/yanizio/neurion/internal/logger"
	"github.com/yanizio/neurion/internal/requestinfo"
	"github.com/yanizio/neurion/internal/session"
	"github.com/yanizio/neurion/internal/submission"
)

// CSRFHeader carries the token on mutating requests.
const CSRFHeader = "X-CSRF-Token"

// maxBody caps request bodies; the largest legal form is about 3 KiB.
const maxBody = 16 << 10

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the contact API.
type Component struct {
	sessions  *session.Manager
	client    *submission.Client
	csrf      *form.CSRF
	log       *zap.SugaredLogger
	cookieTTL time.Duration
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "contact" }

// Init wires the shared services.
func (c *Component) Init(svc component.Services) error {
	if svc.Sessions == nil || svc.Client == nil || svc.CSRF == nil {
		return errors.New("contact: sessions, client, and csrf are required")
	}
	c.sessions = svc.Sessions
	c.client = svc.Client
	c.csrf = svc.CSRF
	c.log = svc.Logger
	if c.log == nil {
		c.log = zap.S()
	}
	c.cookieTTL = svc.CookieTTL
	if c.cookieTTL <= 0 {
		c.cookieTTL = session.DefaultIdleTTL
	}
	return nil
}

// Routes builds the router mounted at /api/contact.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(c.requestLogger)
	r.Use(c.requireCSRF)

	r.Get("/options", c.handleOptions)
	r.Get("/token", c.handleToken)
	r.Post("/", c.handleOneShot)

	r.Route("/sessions", func(s chi.Router) {
		s.Post("/", c.handleCreate)
		s.Get("/current", c.handleCurrent)
		s.Route("/{id}", func(one chi.Router) {
			one.Get("/", c.handleView)
			one.Delete("/", c.handleDelete)
			one.Put("/fields/{field}", c.handleEdit)
			one.Post("/submit", c.handleSubmit)
			one.Post("/reset", c.handleReset)
			one.Get("/ws", c.handleStream)
		})
	})
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Middleware ───────────────────────────────────*/

// requestLogger stores a request-scoped logger carrying the request id and
// the visitor fingerprint from requestinfo.
func (c *Component) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := c.log.With("req", chimw.GetReqID(r.Context()))
		if ri := requestinfo.FromContext(r.Context()); ri != nil {
			l = l.With(ri.LogFields()...)
		}
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}

// requireCSRF rejects mutating requests without a valid token.
func (c *Component) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if !c.csrf.Verify(r.Header.Get(CSRFHeader)) {
			c.logger(r).Infow("csrf rejected", "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "invalid or missing CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
