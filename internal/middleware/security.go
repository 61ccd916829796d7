// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects industry-standard headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years + preload)
//   • Content-Security-Policy   –  API responses load nothing
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • Headers are added just before the status line goes out, so handlers may
//   set their own first; the middleware never overwrites an existing value.
// • Behind a TLS-terminating proxy HSTS is still useful because browsers
//   see the site's domain as HTTPS.
// • Cache-Control defaults to no-store; contact views carry visitor input.

package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts  = "max-age=63072000; includeSubDomains; preload"
		csp   = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
		cache = "no-store"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&headerWriter{ResponseWriter: w, before: func() {
			set := func(k, v string) {
				if w.Header().Get(k) == "" {
					w.Header().Set(k, v)
				}
			}
			set("Strict-Transport-Security", hsts)
			set("Content-Security-Policy", csp)
			set("X-Frame-Options", xfo)
			set("X-Content-Type-Options", nosn)
			set("Referrer-Policy", refer)
			set("Permissions-Policy", perm)
			set("Cache-Control", cache)
		}}, r)
	})
}

// headerWriter runs before() once, right before the status line is sent,
// so handler-set headers win and ours still make it onto the wire.
type headerWriter struct {
	http.ResponseWriter
	before func()
	done   bool
}

func (hw *headerWriter) WriteHeader(code int) {
	if !hw.done {
		hw.done = true
		hw.before()
	}
	hw.ResponseWriter.WriteHeader(code)
}

func (hw *headerWriter) Write(b []byte) (int, error) {
	if !hw.done {
		hw.WriteHeader(http.StatusOK)
	}
	return hw.ResponseWriter.Write(b)
}

// Hijack passes through for websocket upgrades.
func (hw *headerWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := hw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("middleware: response writer cannot hijack")
	}
	hw.done = true
	return hj.Hijack()
}

// Flush passes through for streaming responses.
func (hw *headerWriter) Flush() {
	if f, ok := hw.ResponseWriter.(http.Flusher); ok {
		if !hw.done {
			hw.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (hw *headerWriter) Unwrap() http.ResponseWriter { return hw.ResponseWriter }
