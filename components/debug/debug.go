// components/debug/debug.go
//
// Diagnostic component that echoes what the server saw about a request:
// parsed user-agent, GeoIP country, client IP, and a store probe.
//
// Disabled unless http.debug_endpoints is set; every route answers 404
// otherwise.
package debug

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/neurion/internal/component"
	"github.com/yanizio/neurion/internal/requestinfo"
	"github.com/yanizio/neurion/internal/submission"
)

// Component serves /api/debug.
type Component struct {
	enabled bool
	client  *submission.Client
}

func (c *Component) Name() string { return "debug" }

func (c *Component) Init(svc component.Services) error {
	c.enabled = svc.Debug
	c.client = svc.Client
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(c.gate)
	r.Get("/request", c.handleRequest)
	return r
}

func init() { component.Register(&Component{}) }

func (c *Component) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.enabled {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleRequest writes a JSON blob with the enriched request data.
func (c *Component) handleRequest(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"host": r.Host,
		"path": r.URL.Path,
		"ua":   r.UserAgent(),
	}
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		out["ua_parsed"] = ri.UA
		out["geo"] = ri.Geo
	}
	if c.client != nil {
		out["store_reachable"] = c.client.CheckConnectivity(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
