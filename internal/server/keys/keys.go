// Package keys loads the RS256 signing key pair from PEM files on disk or
// from an S3-compatible bucket.
package keys

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/pushauth/internal/server/config"
	"github.com/golang-jwt/jwt/v5"
)

// ErrKeyMismatch is returned when the public key does not belong to the
// private key.
var ErrKeyMismatch = errors.New("public key does not match private key")

// Pair is the loaded signing key pair.
type Pair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (io.ReadCloser, error) {
		out, err := c.GetObject(ctx, in)
		if err != nil {
			return nil, err
		}
		return out.Body, nil
	}
)

// Parse decodes a PEM private key (PKCS#1 or PKCS#8) and a PEM public key
// (PKIX, PKCS#1 or certificate) and checks that they belong together.
func Parse(privatePEM, publicPEM []byte) (*Pair, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, ErrKeyMismatch
	}
	return &Pair{Private: priv, Public: pub}, nil
}

// LoadFromFiles reads both keys from the local filesystem.
func LoadFromFiles(privatePath, publicPath string) (*Pair, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return Parse(privatePEM, publicPEM)
}

// LoadFromS3 fetches both keys as objects of cfg.KeysS3Bucket.
// Static credentials are used when an access key is configured, otherwise
// the default AWS credential chain applies.
func LoadFromS3(ctx context.Context, cfg *sc.Config) (*Pair, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.KeysS3Region)}
	if cfg.KeysS3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.KeysS3AccessKey, cfg.KeysS3SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.KeysS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.KeysS3Endpoint)
		}
		o.UsePathStyle = cfg.KeysS3UsePathMode
	})

	fetch := func(key string) ([]byte, error) {
		body, err := getObject(client, ctx, &s3.GetObjectInput{
			Bucket: aws.String(cfg.KeysS3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("get s3://%s/%s: %w", cfg.KeysS3Bucket, key, err)
		}
		defer body.Close()
		return io.ReadAll(body)
	}

	privatePEM, err := fetch(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	publicPEM, err := fetch(cfg.PublicKeyPath)
	if err != nil {
		return nil, err
	}
	return Parse(privatePEM, publicPEM)
}

// Load picks S3 when a bucket is configured and local files otherwise.
func Load(ctx context.Context, cfg *sc.Config) (*Pair, error) {
	if cfg.KeysS3Bucket != "" {
		return LoadFromS3(ctx, cfg)
	}
	return LoadFromFiles(cfg.PrivateKeyPath, cfg.PublicKeyPath)
}
