// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadHeaderTimeout – abort slow-loris headers (5 s)
//   • ReadTimeout       – cap request body reads (15 s)
//   • WriteTimeout      – cap total response time (30 s)
//   • IdleTimeout       – close keep-alives on idle clients (60 s)
//
// Config may override each value; zero keeps the default.  Websocket
// streams hijack the connection, so WriteTimeout does not cut them off.
//

package server

import (
	"net/http"
	"time"
)

// Timeouts mirrors the http section of the config.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// New constructs an *http.Server with sensible defaults.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	pick := func(v, def time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return def
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: pick(t.ReadHeader, 5*time.Second),
		ReadTimeout:       pick(t.Read, 15*time.Second),
		WriteTimeout:      pick(t.Write, 30*time.Second),
		IdleTimeout:       pick(t.Idle, 60*time.Second),
	}
}
