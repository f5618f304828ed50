package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"link-runtime/internal/biz"
	"link-runtime/internal/conf"
	"link-runtime/internal/infra/awsconf"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-kratos/kratos/v2/log"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Key reference schemes. Any other reference is a Secrets Manager secret id.
const (
	secretRefEnv    = "env:"
	secretRefStatic = "static:"
)

// SecretsManagerAPI is the subset of the Secrets Manager client the resolver uses.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Compile-time interface check
var _ biz.SecretResolver = (*secretResolver)(nil)

// secretResolver resolves signing-key references and caches the material.
type secretResolver struct {
	sm        SecretsManagerAPI
	cache     *gocache.Cache
	group     singleflight.Group
	timeout   time.Duration
	lookupEnv func(string) (string, bool)
	log       *log.Helper
}

// NewSecretsManagerClient creates a Secrets Manager client for the configured region.
func NewSecretsManagerClient(ctx context.Context, c *conf.Secrets) (*secretsmanager.Client, error) {
	cfg, err := awsconf.Load(ctx, c.Region, c.Endpoint)
	if err != nil {
		return nil, err
	}
	return secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		o.BaseEndpoint = awsconf.Endpoint(c.Endpoint)
	}), nil
}

// NewSecretResolver creates the cached key-reference resolver.
func NewSecretResolver(c *conf.Secrets, sm SecretsManagerAPI, logger log.Logger) biz.SecretResolver {
	return &secretResolver{
		sm:        sm,
		cache:     gocache.New(c.TTL.Duration, 2*c.TTL.Duration),
		timeout:   c.Timeout.Duration,
		lookupEnv: os.LookupEnv,
		log:       log.NewHelper(logger),
	}
}

func (r *secretResolver) Resolve(ctx context.Context, keyRef string) ([]byte, error) {
	if v, ok := r.cache.Get(keyRef); ok {
		return v.([]byte), nil
	}
	v, err, _ := r.group.Do(keyRef, func() (any, error) {
		secret, err := r.fetch(context.WithoutCancel(ctx), keyRef)
		if err != nil {
			return nil, err
		}
		r.cache.SetDefault(keyRef, secret)
		return secret, nil
	})
	if err != nil {
		r.log.WithContext(ctx).Warnw("msg", "failed to resolve signing secret", "key_ref", redactRef(keyRef), "error", err)
		return nil, err
	}
	return v.([]byte), nil
}

func (r *secretResolver) fetch(ctx context.Context, keyRef string) ([]byte, error) {
	switch {
	case strings.HasPrefix(keyRef, secretRefStatic):
		v := strings.TrimPrefix(keyRef, secretRefStatic)
		if v == "" {
			return nil, errors.New("empty static secret")
		}
		return []byte(v), nil
	case strings.HasPrefix(keyRef, secretRefEnv):
		name := strings.TrimPrefix(keyRef, secretRefEnv)
		v, ok := r.lookupEnv(name)
		if !ok || v == "" {
			return nil, fmt.Errorf("environment variable %s is not set", name)
		}
		return []byte(v), nil
	}

	if r.sm == nil {
		return nil, errors.New("secrets manager is not configured")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	out, err := r.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(keyRef)})
	if err != nil {
		return nil, fmt.Errorf("get secret value: %w", err)
	}
	switch {
	case out.SecretString != nil && *out.SecretString != "":
		return []byte(*out.SecretString), nil
	case len(out.SecretBinary) > 0:
		return out.SecretBinary, nil
	}
	return nil, errors.New("secret has no value")
}

// redactRef keeps static secrets out of logs.
func redactRef(keyRef string) string {
	if strings.HasPrefix(keyRef, secretRefStatic) {
		return secretRefStatic + "***"
	}
	return keyRef
}
