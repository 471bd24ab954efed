package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv reads ./.env into the process environment if it exists.
// Variables already set are not overridden.
var loadDotEnv = func() {
	_ = godotenv.Load()
}

// parseEnv overlays config with environment variables.
//
//	ENVIRONMENT             "production" enables Secure cookies
//	PORT                    HTTP port, bound on all interfaces
//	DATABASE_DSN            PostgreSQL DSN
//	RUN_MIGRATIONS          bool
//	DEBUG                   bool, enables debug logging
//	JWT_PRIVATE_KEY_PATH    PEM private key (file or S3 object key)
//	JWT_PUBLIC_KEY_PATH     PEM public key (file or S3 object key)
//	KEYS_S3_BUCKET, KEYS_S3_REGION, KEYS_S3_ENDPOINT,
//	KEYS_S3_ACCESS_KEY, KEYS_S3_SECRET_KEY, KEYS_S3_USE_PATH_STYLE
//	ACCESS_TOKEN_LIFETIME   seconds
//	REFRESH_TOKEN_LIFETIME  seconds
//	COOKIE_DOMAIN, COOKIE_PATH, ACCESS_COOKIE_PATH
//	GEOIP_DATABASE          path to a GeoIP2 City database
//	LOGIN_RATE_PER_MINUTE, LOGIN_RATE_BURST
//	TRUSTED_PROXIES         comma separated CIDRs or addresses
func parseEnv(config *Config) {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
			*dst = b
		}
	}
	seconds := func(name string, dst *time.Duration) {
		n := -1
		integer(name, &n)
		if n >= 0 {
			*dst = time.Duration(n) * time.Second
		}
	}

	str("ENVIRONMENT", &config.Environment)
	if port, ok := os.LookupEnv("PORT"); ok {
		config.EndpointAddrHTTP = ":" + port
	}
	str("DATABASE_DSN", &config.DatabaseDSN)
	boolean("RUN_MIGRATIONS", &config.RunMigrations)
	boolean("DEBUG", &config.Debug)
	str("JWT_PRIVATE_KEY_PATH", &config.PrivateKeyPath)
	str("JWT_PUBLIC_KEY_PATH", &config.PublicKeyPath)
	str("KEYS_S3_BUCKET", &config.KeysS3Bucket)
	str("KEYS_S3_REGION", &config.KeysS3Region)
	str("KEYS_S3_ENDPOINT", &config.KeysS3Endpoint)
	str("KEYS_S3_ACCESS_KEY", &config.KeysS3AccessKey)
	str("KEYS_S3_SECRET_KEY", &config.KeysS3SecretKey)
	boolean("KEYS_S3_USE_PATH_STYLE", &config.KeysS3UsePathMode)
	seconds("ACCESS_TOKEN_LIFETIME", &config.AccessTokenValidityDuration)
	seconds("REFRESH_TOKEN_LIFETIME", &config.RefreshTokenValidityDuration)
	str("COOKIE_DOMAIN", &config.CookieDomain)
	str("COOKIE_PATH", &config.CookiePath)
	str("ACCESS_COOKIE_PATH", &config.AccessCookiePath)
	str("GEOIP_DATABASE", &config.GeoIPDatabasePath)
	integer("LOGIN_RATE_PER_MINUTE", &config.LoginRatePerMinute)
	integer("LOGIN_RATE_BURST", &config.LoginRateBurst)
	if v, ok := os.LookupEnv("TRUSTED_PROXIES"); ok {
		config.TrustedProxies = splitList(v)
	}
}
