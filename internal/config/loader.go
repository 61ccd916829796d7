// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `NEURION_`, where `__` maps to "."
     (e.g., `NEURION_STORE__API_KEY → store.api_key`).

After merging, every string value that starts with `vault:` is replaced by
the secret it names.  The tree is then unmarshalled into strongly-typed
structs, defaulted, validated, enriched with the runtime root path, and
cached in an `atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  - DEBUG spans – root discovery, YAML read, env overlay.
  - ERROR spans – YAML parse, env overlay, vault, unmarshal, validation.
  - INFO  span  – final "config loaded" with key highlights.
  - Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  - `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  - Secrets are never logged; only their keys are.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/neurion/internal/vault"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NEURION_"

// Resolver turns a `vault:` reference into its secret.  *vault.Client
// satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// ErrNoResolver is returned when the tree holds vault refs but no Resolver
// was supplied.
var ErrNoResolver = errors.New("config: vault reference found but no resolver configured")

// Options control Load.
type Options struct {
	Root     string   // "" → NEURION_ROOT or discovery
	Resolver Resolver // nil → vault refs are an error
}

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves NEURION_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to executable heuristic for the
// production layout.
func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves vault refs, validates, and
// caches Config.
func Load(ctx context.Context, opts Options) (*Config, error) {
	root := opts.Root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: NEURION_STORE__API_KEY → store.api_key
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, opts.Resolver); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"store_backend", cfg.Store.Backend,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveSecrets swaps every `vault:` string for its secret value.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, r Resolver) error {
	all := k.All()
	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s, ok := all[key].(string)
		if !ok || !vault.IsRef(s) {
			continue
		}
		if r == nil {
			return fmt.Errorf("%w: %s", ErrNoResolver, key)
		}
		secret, err := r.Resolve(ctx, s)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key)
	}
	return nil
}

// NeedsVault reports whether any raw layer of root's config references
// Vault, so main can decide whether to dial it.
func NeedsVault(root string) bool {
	if root == "" {
		root = rootDir()
	}
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))
	if raw, err := os.ReadFile(filepath.Join(root, "conf", "global.yaml")); err == nil &&
		strings.Contains(string(raw), vault.RefPrefix) {
		return true
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix) && strings.Contains(kv, "="+vault.RefPrefix) {
			return true
		}
	}
	return false
}

func applyDefaults(c *Config) {
	if c.HTTP.ReadHeaderTimeout <= 0 {
		c.HTTP.ReadHeaderTimeout = 5 * time.Second
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout <= 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Store.Table == "" {
		c.Store.Table = "contact_messages"
	}
	if c.Session.SuccessDelay <= 0 {
		c.Session.SuccessDelay = 5 * time.Second
	}
	if c.Session.IdleTTL <= 0 {
		c.Session.IdleTTL = 30 * time.Minute
	}
	if c.Session.EvictInterval <= 0 {
		c.Session.EvictInterval = time.Minute
	}
	if c.Session.MaxEntries <= 0 {
		c.Session.MaxEntries = 10_000
	}
	if c.CSRF.MaxAge <= 0 {
		c.CSRF.MaxAge = 2 * time.Hour
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = 64
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" && c.Paths.Root != "" {
		c.Log.Dir = filepath.Join(c.Paths.Root, "logs")
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }
