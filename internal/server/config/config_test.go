package config

import (
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envNames = []string{
	"ENVIRONMENT", "PORT", "DATABASE_DSN", "RUN_MIGRATIONS", "DEBUG",
	"JWT_PRIVATE_KEY_PATH", "JWT_PUBLIC_KEY_PATH",
	"KEYS_S3_BUCKET", "KEYS_S3_REGION", "KEYS_S3_ENDPOINT", "KEYS_S3_ACCESS_KEY", "KEYS_S3_SECRET_KEY", "KEYS_S3_USE_PATH_STYLE",
	"ACCESS_TOKEN_LIFETIME", "REFRESH_TOKEN_LIFETIME",
	"COOKIE_DOMAIN", "COOKIE_PATH", "ACCESS_COOKIE_PATH", "GEOIP_DATABASE",
	"LOGIN_RATE_PER_MINUTE", "LOGIN_RATE_BURST", "TRUSTED_PROXIES",
}

// clearEnv unsets every variable parseEnv reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		if old, ok := os.LookupEnv(name); ok {
			require.NoError(t, os.Unsetenv(name))
			t.Cleanup(func() { _ = os.Setenv(name, old) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, 30*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, "/", c.CookiePath)
	assert.Equal(t, "jwtRS256.key", c.PrivateKeyPath)
	assert.Equal(t, "jwtRS256.key.pub", c.PublicKeyPath)
	assert.False(t, c.IsProduction())
	assert.False(t, c.RunMigrations)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	clearEnv(t)
	origArgs, origDotEnv := os.Args, loadDotEnv
	t.Cleanup(func() { os.Args, loadDotEnv = origArgs, origDotEnv })

	os.Args = []string{"testbin"}
	dotEnvCalled := false
	loadDotEnv = func() { dotEnvCalled = true }

	c := LoadConfig()
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
	assert.True(t, dotEnvCalled)
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearEnv(t)
	origArgs, origDotEnv := os.Args, loadDotEnv
	t.Cleanup(func() { os.Args, loadDotEnv = origArgs, origDotEnv })
	loadDotEnv = func() {}

	path := writeTempJSON(t, "", "", map[string]any{
		"database_dsn":          "from-json",
		"endpoint_addr_http":    ":1000",
		"access_token_lifetime": "10m",
	})
	t.Setenv("DATABASE_DSN", "from-env")
	t.Setenv("PORT", "2000")
	os.Args = []string{"testbin", "-c", path, "-a", ":3000"}

	c := LoadConfig()

	assert.Equal(t, "from-env", c.DatabaseDSN)
	assert.Equal(t, ":3000", c.EndpointAddrHTTP)
	assert.Equal(t, 10*time.Minute, c.AccessTokenValidityDuration)
}

func TestEffectiveAccessCookiePath(t *testing.T) {
	c := Config{CookiePath: "/api"}
	assert.Equal(t, "/api", c.EffectiveAccessCookiePath())

	c.AccessCookiePath = "/api/admin"
	assert.Equal(t, "/api/admin", c.EffectiveAccessCookiePath())
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Environment: "production"}).IsProduction())
	assert.False(t, (&Config{Environment: "staging"}).IsProduction())
}

func TestTrustedProxyPrefixes(t *testing.T) {
	c := Config{TrustedProxies: []string{"10.1.2.3/8", " 192.168.1.1 ", "::ffff:172.16.0.1", "fd00::/64", ""}}
	got, err := c.TrustedProxyPrefixes()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.1/32"),
		netip.MustParsePrefix("172.16.0.1/32"),
		netip.MustParsePrefix("fd00::/64"),
	}, got)

	empty, err := (&Config{}).TrustedProxyPrefixes()
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"10.0.0.0/33", "proxy.local"} {
		_, err := (&Config{TrustedProxies: []string{bad}}).TrustedProxyPrefixes()
		assert.Error(t, err, bad)
	}
}
