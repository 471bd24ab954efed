package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/pushauth/internal/flagx"
	"github.com/dmitrijs2005/pushauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so they may be written as "30m" or as a number of seconds.
// Only fields present in the file override earlier values.
type JsonConfig struct {
	Environment                  *string         `json:"environment"`
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	RunMigrations                *bool           `json:"run_migrations"`
	Debug                        *bool           `json:"debug"`
	PrivateKeyPath               *string         `json:"private_key_path"`
	PublicKeyPath                *string         `json:"public_key_path"`
	KeysS3Bucket                 *string         `json:"keys_s3_bucket"`
	KeysS3Region                 *string         `json:"keys_s3_region"`
	KeysS3Endpoint               *string         `json:"keys_s3_endpoint"`
	KeysS3AccessKey              *string         `json:"keys_s3_access_key"`
	KeysS3SecretKey              *string         `json:"keys_s3_secret_key"`
	KeysS3UsePathMode            *bool           `json:"keys_s3_use_path_style"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_lifetime"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_lifetime"`
	CookieDomain                 *string         `json:"cookie_domain"`
	CookiePath                   *string         `json:"cookie_path"`
	AccessCookiePath             *string         `json:"access_cookie_path"`
	GeoIPDatabasePath            *string         `json:"geoip_database"`
	LoginRatePerMinute           *int            `json:"login_rate_per_minute"`
	LoginRateBurst               *int            `json:"login_rate_burst"`
	TrustedProxies               *[]string       `json:"trusted_proxies"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJson overlays config with the file given by -c or -config. Without
// the flag nothing is loaded. Read or decode errors panic.
func parseJson(config *Config) {
	path := flagx.ConfigFilePath(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.Environment, c.Environment)
	setIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.RunMigrations, c.RunMigrations)
	setIf(&config.Debug, c.Debug)
	setIf(&config.PrivateKeyPath, c.PrivateKeyPath)
	setIf(&config.PublicKeyPath, c.PublicKeyPath)
	setIf(&config.KeysS3Bucket, c.KeysS3Bucket)
	setIf(&config.KeysS3Region, c.KeysS3Region)
	setIf(&config.KeysS3Endpoint, c.KeysS3Endpoint)
	setIf(&config.KeysS3AccessKey, c.KeysS3AccessKey)
	setIf(&config.KeysS3SecretKey, c.KeysS3SecretKey)
	setIf(&config.KeysS3UsePathMode, c.KeysS3UsePathMode)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setIf(&config.CookieDomain, c.CookieDomain)
	setIf(&config.CookiePath, c.CookiePath)
	setIf(&config.AccessCookiePath, c.AccessCookiePath)
	setIf(&config.GeoIPDatabasePath, c.GeoIPDatabasePath)
	setIf(&config.LoginRatePerMinute, c.LoginRatePerMinute)
	setIf(&config.LoginRateBurst, c.LoginRateBurst)
	setIf(&config.TrustedProxies, c.TrustedProxies)
}
