// internal/store/postgrest.go
//
// PostgREST backend (Supabase-compatible REST front).
//
// Context
// -------
// The hosted database exposes each table under `<url>/rest/v1/<table>`.
// Requests authenticate with the project's anon key twice: once in the
// `apikey` header and once as a bearer token.
//
//   - Ping   → HEAD  /rest/v1/<table>?select=count  (Prefer: count=exact)
//   - Insert → POST  /rest/v1/<table>               (Prefer: return=representation)
//
// Insert asks for a single-object response so the server-assigned id and
// created_at come back with the echoed fields.  Error responses carry a JSON
// body `{code, message, details, hint}` which decodes straight into *Error.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxResponse caps how much of a response body is read.  A single-object
// reply or an error body is a few hundred bytes.
const maxResponse = 1 << 20

// ClientInfo is sent as X-Client-Info so operators can spot our traffic.
const ClientInfo = "neurion-ai-contact-form"

// PostgRESTConfig holds connection parameters.  Values come from config,
// never from the process environment.
type PostgRESTConfig struct {
	URL    string       // project URL, e.g. https://xyz.supabase.co
	APIKey string       // anon key
	Table  string       // defaults to DefaultTable
	HTTP   *http.Client // optional; nil selects a client without timeout
}

// PostgREST implements Store over the REST API.
type PostgREST struct {
	endpoint string
	apiKey   string
	table    string
	http     *http.Client
}

var _ Store = (*PostgREST)(nil)

// NewPostgREST validates cfg and returns a ready client.
func NewPostgREST(cfg PostgRESTConfig) (*PostgREST, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("postgrest: url and api key are required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("postgrest: parse url: %w", err)
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	hc := cfg.HTTP
	if hc == nil {
		hc = &http.Client{}
	}
	return &PostgREST{
		endpoint: strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + url.PathEscape(table),
		apiKey:   cfg.APIKey,
		table:    table,
		http:     hc,
	}, nil
}

// Ping issues a head-only count query against the table.
func (p *PostgREST) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.endpoint+"?select=count", nil)
	if err != nil {
		return fmt.Errorf("postgrest: build ping: %w", err)
	}
	p.authorize(req)
	req.Header.Set("Prefer", "count=exact")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("postgrest: ping %s: %w", p.table, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponse))

	if resp.StatusCode >= 300 {
		return &Error{Message: fmt.Sprintf("ping %s: status %d", p.table, resp.StatusCode)}
	}
	return nil
}

// Insert writes rec and decodes the stored row.
func (p *PostgREST) Insert(ctx context.Context, rec NewRecord) (*Record, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("postgrest: encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("postgrest: build insert: %w", err)
	}
	p.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postgrest: insert into %s: %w", p.table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse+1))
	if err != nil {
		return nil, fmt.Errorf("postgrest: read response: %w", err)
	}
	if len(body) > maxResponse {
		return nil, fmt.Errorf("postgrest: response from %s exceeds %d bytes", p.table, maxResponse)
	}

	if resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, body)
	}

	var out Record
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("postgrest: decode record: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("postgrest: response missing id")
	}
	return &out, nil
}

func (p *PostgREST) authorize(req *http.Request) {
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Client-Info", ClientInfo)
}

// decodeError turns a PostgREST error body into *Error.  Bodies that are not
// JSON still yield an *Error so the status is never lost.
func decodeError(status int, body []byte) error {
	var se Error
	if err := json.Unmarshal(body, &se); err != nil || (se.Code == "" && se.Message == "") {
		return &Error{Message: fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))}
	}
	return &se
}
