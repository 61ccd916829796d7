package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := f[ref]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

func writeConf(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644))
	return root
}

const baseYAML = `
http:
  listen_addr: ":8080"
store:
  backend: postgrest
  url: https://abc.supabase.co
  api_key: "vault:secret/neurion/store#anon_key"
session:
  success_delay: 3s
notify:
  webhook_url: https://hooks.example.com/contact
`

func TestLoad_LayersAndDefaults(t *testing.T) {
	root := writeConf(t, baseYAML)
	t.Setenv("NEURION_HTTP__FORCE_HTTPS", "true")
	t.Setenv("NEURION_SESSION__MAX_ENTRIES", "42")

	cfg, err := Load(context.Background(), Options{
		Root:     root,
		Resolver: fakeResolver{"vault:secret/neurion/store#anon_key": "anon-123"},
	})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.True(t, cfg.HTTP.ForceHTTPS)
	assert.Equal(t, "anon-123", cfg.Store.APIKey)
	assert.Equal(t, "contact_messages", cfg.Store.Table)
	assert.Equal(t, 3*time.Second, cfg.Session.SuccessDelay)
	assert.Equal(t, 42, cfg.Session.MaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, filepath.Join(root, "logs"), cfg.Log.Dir)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Same(t, cfg, Get())
}

func TestLoad_VaultRefWithoutResolver(t *testing.T) {
	root := writeConf(t, baseYAML)
	_, err := Load(context.Background(), Options{Root: root})
	assert.ErrorIs(t, err, ErrNoResolver)
	assert.True(t, NeedsVault(root))
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := map[string]string{
		"missing backend": `
http:
  listen_addr: ":8080"
`,
		"sql without dsn": `
http:
  listen_addr: ":8080"
store:
  backend: sql
  driver: sqlite
`,
		"bad table": `
http:
  listen_addr: ":8080"
store:
  backend: sql
  driver: sqlite
  dsn: ":memory:"
  table: "contact; drop"
`,
		"mail relay without recipients": `
http:
  listen_addr: ":8080"
store:
  backend: sql
  driver: sqlite
  dsn: ":memory:"
notify:
  mail_relay_url: https://relay.example.com/send
`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(context.Background(), Options{Root: writeConf(t, yaml)})
			assert.Error(t, err)
		})
	}
}

func TestLoad_SQLBackend(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: "127.0.0.1:9000"
store:
  backend: sql
  driver: sqlite
  dsn: "file:contact.db"
  migrate: true
log:
  level: debug
`)
	cfg, err := Load(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, BackendSQL, cfg.Store.Backend)
	assert.True(t, cfg.Store.Migrate)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, NeedsVault(root))
}

func TestLoad_MissingYAML(t *testing.T) {
	_, err := Load(context.Background(), Options{Root: t.TempDir()})
	assert.Error(t, err)
}
