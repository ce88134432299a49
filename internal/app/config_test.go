package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Fetch.MaxRedirects)
	assert.Equal(t, "v18.0", cfg.Graph.Version)
	assert.False(t, cfg.Cache.Enabled)

	tiktok := cfg.Platforms.TikTok
	assert.True(t, tiktok.TrustEmbeddedState)
	assert.Equal(t, 3, tiktok.Browser.Attempts)
	assert.Equal(t, 2*time.Second, tiktok.Browser.Backoff)
	assert.Equal(t, 30*time.Second, tiktok.Browser.NavigationTimeout)
	assert.True(t, tiktok.Browser.BlockResources)

	ig := cfg.Platforms.Instagram
	assert.Equal(t, 60*time.Second, ig.Browser.NavigationTimeout)
	assert.Equal(t, 5*time.Second, ig.Browser.SelectorTimeout)
	assert.False(t, ig.Browser.BlockResources)
	assert.Equal(t, "video[src]", ig.Browser.Selectors[0])

	assert.True(t, cfg.Platforms.Facebook.APIFirst)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
platforms:
  instagram:
    browser:
      mode: always
      selectors: ["video"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BrowserAlways, cfg.Platforms.Instagram.Browser.Mode)
	assert.Equal(t, []string{"video"}, cfg.Platforms.Instagram.Browser.Selectors)
	assert.Equal(t, 60*time.Second, cfg.Platforms.Instagram.Browser.NavigationTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REELMETA_GRAPH__APP_ID", "123")
	t.Setenv("REELMETA_GRAPH__CLIENT_TOKEN", "abc")
	t.Setenv("REELMETA_PLATFORMS__TIKTOK__BROWSER__ATTEMPTS", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123", cfg.Graph.AppID)
	assert.Equal(t, "abc", cfg.Graph.ClientToken)
	assert.Equal(t, 5, cfg.Platforms.TikTok.Browser.Attempts)
}

func TestLoadRejectsHalfCredential(t *testing.T) {
	t.Setenv("REELMETA_GRAPH__APP_ID", "123")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}

func TestLoadRejectsUnknownBrowserMode(t *testing.T) {
	path := writeConfig(t, `
platforms:
  tiktok:
    browser:
      mode: sometimes
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresCacheAddrWhenEnabled(t *testing.T) {
	path := writeConfig(t, `
cache:
  enabled: true
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "graph.app_id", envKey("REELMETA_GRAPH__APP_ID"))
	assert.Equal(t, "platforms.tiktok.browser.mode", envKey("REELMETA_PLATFORMS__TIKTOK__BROWSER__MODE"))
}
