// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web builds the shared
// Services once, calls Init on every registered component, and mounts each
// component's Routes() at /api/<name>.

package component

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/neurion/internal/form"
	"github.com/yanizio/neurion/internal/session"
	"github.com/yanizio/neurion/internal/submission"
)

// Services are the process-wide collaborators handed to components.
type Services struct {
	Sessions  *session.Manager
	Client    *submission.Client
	CSRF      *form.CSRF
	Logger    *zap.SugaredLogger
	CookieTTL time.Duration
	Debug     bool // enables diagnostic routes
}

// Component contract.
//
// Routes() returns paths relative to the component prefix.  Mount attaches
// the router at /api/<name>, so "contact" serves /api/contact/...
type Component interface {
	Name() string
	Init(Services) error
	Routes() chi.Router
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  Registering the
// same name twice panics.
func Register(c Component) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[c.Name()]; dup {
		panic(fmt.Sprintf("component: %q registered twice", c.Name()))
	}
	registry[c.Name()] = c
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component and mounts its routes on r.
func Mount(r chi.Router, svc Services) error {
	for _, c := range All() {
		if err := c.Init(svc); err != nil {
			return fmt.Errorf("component %s: init: %w", c.Name(), err)
		}
		r.Mount(Prefix(c), c.Routes())
	}
	return nil
}

// Prefix is the path a component is mounted at.
func Prefix(c Component) string { return "/api/" + c.Name() }
