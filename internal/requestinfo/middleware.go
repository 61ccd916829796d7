// internal/requestinfo/middleware.go
//
// Request enrichment for the contact service.
//
/*
Context
--------
Submit logs and the debug echo carry the visitor's IP, country, and
browser.  The IP must not be whatever a client chooses to put in a header,
so forwarding headers are only read when the TCP peer is a configured
proxy (http.trusted_proxies).

Client IP resolution
--------------------

  1. Peer = host part of r.RemoteAddr.  Untrusted peer → peer wins.
  2. Trusted peer → walk X-Forwarded-For right to left, skipping hops that
     are trusted proxies or private, loopback, or link-local addresses.
     The first remaining hop is the client.
  3. No usable hop → a public X-Real-Ip, else the peer.

The walk runs right to left because only the right-hand entries were
appended by our own proxies; anything further left is client-supplied.

Notes
-----
  • Proxies is immutable after ParseProxies and safe to share.
  • Geo lookup is skipped when no database was opened with InitGeo.
*/
package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/zap"
)

/*──────────────────────────── trusted proxies ──────────────────────────────*/

// Proxies lists the peers whose forwarding headers are believed.  The zero
// value trusts nobody.
type Proxies struct {
	nets []netip.Prefix
}

// ParseProxies accepts CIDRs ("10.0.0.0/8") and bare addresses ("127.0.0.1").
func ParseProxies(entries []string) (Proxies, error) {
	var p Proxies
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			pfx, err := netip.ParsePrefix(e)
			if err != nil {
				return Proxies{}, fmt.Errorf("requestinfo: trusted proxy %q: %w", e, err)
			}
			p.nets = append(p.nets, pfx.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return Proxies{}, fmt.Errorf("requestinfo: trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		p.nets = append(p.nets, netip.PrefixFrom(a, a.BitLen()))
	}
	return p, nil
}

// Trusts reports whether a belongs to a configured proxy range.
func (p Proxies) Trusts(a netip.Addr) bool {
	a = a.Unmap()
	for _, n := range p.nets {
		if n.Contains(a) {
			return true
		}
	}
	return false
}

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich attaches *RequestInfo while trusting no proxy.
func Enrich(next http.Handler) http.Handler { return Middleware(Proxies{})(next) }

// Middleware returns the enrichment handler for a deployment behind
// proxies.  Chi's middleware signature, so it mounts with r.Use.
func Middleware(proxies Proxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, proxies)

			info := &RequestInfo{
				UA:        parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
				Geo:       lookupGeo(ip),
				URL:       r.URL,
				Timestamp: time.Now().UTC(),
			}

			zap.S().Debugw("request info",
				"ip", info.Geo.IP,
				"peer", r.RemoteAddr,
				"country", info.Geo.CountryISO,
				"browser", info.UA.Browser,
				"bot", info.UA.IsBot,
				"path", r.URL.Path,
			)

			ctx := context.WithValue(r.Context(), ctxKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

/*──────────────────────────── client IP ────────────────────────────────────*/

func clientIP(r *http.Request, proxies Proxies) net.IP {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return nil
	}
	if !proxies.Trusts(peer) {
		return toIP(peer)
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break // malformed chain; nothing to its left is reliable
		}
		a = a.Unmap()
		if proxies.Trusts(a) || internal(a) {
			continue
		}
		return toIP(a)
	}

	if a, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); err == nil && !internal(a.Unmap()) {
		return toIP(a.Unmap())
	}
	return toIP(peer)
}

func peerAddr(remote string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(remote); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}

// internal reports addresses that never identify a visitor on the internet.
func internal(a netip.Addr) bool {
	return a.IsPrivate() || a.IsLoopback() || a.IsLinkLocalUnicast() || a.IsUnspecified()
}

func toIP(a netip.Addr) net.IP { return net.IP(a.AsSlice()) }
