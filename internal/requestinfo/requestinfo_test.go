package requestinfo

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func TestEnrich(t *testing.T) {
	proxies, err := ParseProxies([]string{"192.0.2.0/24"})
	require.NoError(t, err)

	var got *RequestInfo
	h := Middleware(proxies)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/contact?x=1", nil)
	req.Header.Set("User-Agent", chromeMac)
	req.Header.Set("Accept-Language", "en-GB;q=0.9,en;q=0.8")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "Chrome", got.UA.Browser)
	assert.Equal(t, "124", got.UA.Version)
	assert.Equal(t, "macOS", got.UA.OS)
	assert.Equal(t, "Desktop", got.UA.Device)
	assert.False(t, got.UA.IsBot)
	assert.Equal(t, "en-gb", got.UA.PrimaryLang)
	assert.True(t, got.Geo.IP.Equal(net.ParseIP("203.0.113.7")))
	assert.Empty(t, got.Geo.CountryISO, "no geo database loaded")
	assert.Equal(t, "/api/contact", got.URL.Path)
	assert.NotEmpty(t, got.LogFields())
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	cases := []struct {
		name    string
		peer    string
		xff     []string
		realIP  string
		trusted Proxies
		want    string
	}{
		{name: "no headers", peer: "198.51.100.9:5555", trusted: proxies, want: "198.51.100.9"},
		{name: "spoofed xff from untrusted peer", peer: "198.51.100.9:5555", xff: []string{"203.0.113.66"}, trusted: proxies, want: "198.51.100.9"},
		{name: "spoofed real ip from untrusted peer", peer: "198.51.100.9:5555", realIP: "203.0.113.66", trusted: proxies, want: "198.51.100.9"},
		{name: "zero proxies trust nobody", peer: "192.0.2.1:80", xff: []string{"203.0.113.7"}, want: "192.0.2.1"},
		{name: "trusted peer", peer: "192.0.2.1:80", xff: []string{"203.0.113.7"}, trusted: proxies, want: "203.0.113.7"},
		{name: "client-forged left entry ignored", peer: "192.0.2.1:80", xff: []string{"1.1.1.1, 203.0.113.7"}, trusted: proxies, want: "203.0.113.7"},
		{name: "private and proxy hops skipped", peer: "10.1.2.3:80", xff: []string{"203.0.113.7, 172.16.0.4", "10.9.9.9"}, trusted: proxies, want: "203.0.113.7"},
		{name: "only private hops", peer: "10.1.2.3:80", xff: []string{"127.0.0.1, 192.168.1.1"}, trusted: proxies, want: "10.1.2.3"},
		{name: "malformed hop stops walk", peer: "10.1.2.3:80", xff: []string{"203.0.113.7, nonsense"}, trusted: proxies, want: "10.1.2.3"},
		{name: "real ip from trusted peer", peer: "10.1.2.3:80", realIP: "198.51.100.2", trusted: proxies, want: "198.51.100.2"},
		{name: "private real ip ignored", peer: "10.1.2.3:80", realIP: "10.0.0.5", trusted: proxies, want: "10.1.2.3"},
		{name: "ipv6 peer", peer: "[2001:db8::1]:443", trusted: proxies, want: "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.peer
			for _, v := range tc.xff {
				r.Header.Add("X-Forwarded-For", v)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-Ip", tc.realIP)
			}
			assert.Equal(t, tc.want, clientIP(r, tc.trusted).String())
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "not-an-address"
	assert.Nil(t, clientIP(r, proxies))
}

func TestEnrich_SpoofedForwardedFor(t *testing.T) {
	var got *RequestInfo
	h := Enrich(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = "198.51.100.9:40000"
	req.Header.Set("X-Forwarded-For", "203.0.113.66")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "198.51.100.9", got.Geo.IP.String())
}

func TestParseProxies(t *testing.T) {
	p, err := ParseProxies([]string{" 10.0.0.0/8 ", "", "::1", "192.0.2.7"})
	require.NoError(t, err)
	assert.True(t, p.Trusts(netip.MustParseAddr("10.200.0.1")))
	assert.True(t, p.Trusts(netip.MustParseAddr("::1")))
	assert.True(t, p.Trusts(netip.MustParseAddr("::ffff:192.0.2.7")))
	assert.False(t, p.Trusts(netip.MustParseAddr("192.0.2.8")))

	_, err = ParseProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestFromContext_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, FromContext(r.Context()))
	var ri *RequestInfo
	assert.Nil(t, ri.LogFields())
}

func TestInitGeo_MissingFile(t *testing.T) {
	assert.Error(t, InitGeo("/nonexistent/GeoLite2-City.mmdb"))
}

func TestPrimaryLang(t *testing.T) {
	assert.Equal(t, "", primaryLang(""))
	assert.Equal(t, "fr", primaryLang("FR"))
	assert.Equal(t, "de-de", primaryLang("de-DE;q=1, en"))
}
