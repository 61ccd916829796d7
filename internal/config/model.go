// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   - optional `.env`                           – dotenv values,
//   - `conf/global.yaml`                        – primary static file,
//   - `NEURION_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   - The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr        string        `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS        bool          `koanf:"force_https"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	DebugEndpoints    bool          `koanf:"debug_endpoints"`
	// TrustedProxies are CIDRs or addresses whose X-Forwarded-For is read.
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,cidr|ip"`
}

//
// Store section
//

// Store backends.
const (
	BackendPostgREST = "postgrest"
	BackendSQL       = "sql"
)

// Store selects and parameterises the persistence backend.
//
// The PostgREST backend needs URL and APIKey; the SQL backend needs Driver
// and DSN.  APIKey and DSN are usually `vault:` references.
type Store struct {
	Backend string `koanf:"backend" validate:"required,oneof=postgrest sql"`
	Table   string `koanf:"table" validate:"omitempty,sql_ident"`

	URL    string `koanf:"url" validate:"required_if=Backend postgrest,omitempty,url"`
	APIKey string `koanf:"api_key" validate:"required_if=Backend postgrest"`

	Driver  string `koanf:"driver" validate:"required_if=Backend sql,omitempty,oneof=mysql pgx sqlite"`
	DSN     string `koanf:"dsn" validate:"required_if=Backend sql"`
	Migrate bool   `koanf:"migrate"`
}

//
// Session section
//

// Session tunes the in-memory form sessions.
type Session struct {
	SuccessDelay  time.Duration `koanf:"success_delay"`
	IdleTTL       time.Duration `koanf:"idle_ttl"`
	EvictInterval time.Duration `koanf:"evict_interval"`
	MaxEntries    int           `koanf:"max_entries" validate:"min=0"`
}

//
// CSRF section
//

// CSRF holds the token signing secret.  Empty means an ephemeral key, which
// only works for single-instance deployments.
type CSRF struct {
	Secret string        `koanf:"secret" validate:"omitempty,min=32"`
	MaxAge time.Duration `koanf:"max_age"`
}

//
// Notify section
//

// Notify configures post-submission notifications.  Both channels are
// optional; leaving every URL empty disables notifications.
type Notify struct {
	WebhookURL   string   `koanf:"webhook_url" validate:"omitempty,url"`
	MailRelayURL string   `koanf:"mail_relay_url" validate:"omitempty,url"`
	From         string   `koanf:"from" validate:"omitempty,email"`
	To           []string `koanf:"to" validate:"required_with=MailRelayURL,dive,email"`
	QueueSize    int      `koanf:"queue_size" validate:"min=0"`
}

//
// Log section
//

// Log controls the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `koanf:"dir"`
}

//
// GeoIP section
//

// GeoIP points at an optional MaxMind country database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // NEURION_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP    HTTP    `koanf:"http"`
	Store   Store   `koanf:"store"`
	Session Session `koanf:"session"`
	CSRF    CSRF    `koanf:"csrf"`
	Notify  Notify  `koanf:"notify"`
	Log     Log     `koanf:"log"`
	GeoIP   GeoIP   `koanf:"geoip"`
	Paths   Paths   `koanf:"-"`
}
