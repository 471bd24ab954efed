package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/pushauth/internal/flagx"
)

// parseFlags overlays config with command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-t int      access token lifetime, seconds
//	-r int      refresh token lifetime, seconds
//	-k string   private key path
//	-p string   public key path
//	-b string   S3 bucket holding the key pair
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-geoip      GeoIP2 City database path
//	-env        environment name
//	-migrate    apply embedded migrations on start
//	-trusted-proxies  comma separated proxy CIDRs
//
// Only these flags are parsed; everything else in os.Args is ignored.
func parseFlags(config *Config) {
	args := flagx.FilterArgsWithBools(os.Args[1:],
		[]string{"-a", "-d", "-t", "-r", "-k", "-p", "-b", "-g", "-e", "-geoip", "-env", "-trusted-proxies"},
		[]string{"-migrate"},
	)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	accessSeconds := fs.Int("t", int(config.AccessTokenValidityDuration.Seconds()), "access token lifetime (in seconds)")
	refreshSeconds := fs.Int("r", int(config.RefreshTokenValidityDuration.Seconds()), "refresh token lifetime (in seconds)")

	fs.StringVar(&config.PrivateKeyPath, "k", config.PrivateKeyPath, "RS256 private key (PEM)")
	fs.StringVar(&config.PublicKeyPath, "p", config.PublicKeyPath, "RS256 public key (PEM)")
	fs.StringVar(&config.KeysS3Bucket, "b", config.KeysS3Bucket, "S3 bucket holding the key pair")
	fs.StringVar(&config.KeysS3Region, "g", config.KeysS3Region, "S3 region")
	fs.StringVar(&config.KeysS3Endpoint, "e", config.KeysS3Endpoint, "S3 base endpoint")
	fs.StringVar(&config.GeoIPDatabasePath, "geoip", config.GeoIPDatabasePath, "GeoIP2 City database")
	fs.StringVar(&config.Environment, "env", config.Environment, "environment (production enables Secure cookies)")
	trusted := fs.String("trusted-proxies", strings.Join(config.TrustedProxies, ","), "comma separated CIDRs of trusted reverse proxies")
	fs.BoolVar(&config.RunMigrations, "migrate", config.RunMigrations, "apply database migrations on start")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TrustedProxies = splitList(*trusted)
	config.AccessTokenValidityDuration = time.Duration(*accessSeconds) * time.Second
	config.RefreshTokenValidityDuration = time.Duration(*refreshSeconds) * time.Second
}
