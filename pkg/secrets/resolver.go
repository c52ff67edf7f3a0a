// Package secrets resolves database credentials either directly from
// configuration or from AWS Secrets Manager, caching the result for the
// process lifetime.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"

	"gitlab.connectwisedev.com/catalog-service/pkg/config"
	"gitlab.connectwisedev.com/catalog-service/pkg/e"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "secrets").Logger()

// ConnectionConfig holds the resolved database connection parameters.
// Never log or serialize this type.
type ConnectionConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// SecretsAPI is the slice of the Secrets Manager client the resolver
// needs; tests substitute a fake.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver produces ConnectionConfigs per the configured mode. The
// managed-secret result is fetched once and cached for the process
// lifetime; subsequent calls make no network round trip.
type Resolver struct {
	cfg *config.DBConfig

	mu     sync.Mutex
	api    SecretsAPI
	cached *ConnectionConfig
}

// NewResolver builds a resolver over the given credential configuration.
func NewResolver(cfg *config.DBConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// NewResolverWithAPI injects a Secrets Manager client, used by tests.
func NewResolverWithAPI(cfg *config.DBConfig, api SecretsAPI) *Resolver {
	return &Resolver{cfg: cfg, api: api}
}

// Resolve returns the connection parameters for the configured mode.
func (r *Resolver) Resolve(ctx context.Context) (*ConnectionConfig, error) {
	const op = "secrets.Resolve"

	switch r.cfg.Mode {
	case config.ModeDirect:
		return &ConnectionConfig{
			Host:     r.cfg.Host,
			Port:     r.cfg.Port,
			User:     r.cfg.User,
			Password: r.cfg.Password,
			DBName:   r.cfg.DBName,
		}, nil
	case config.ModeSecretsManager:
		return r.resolveManaged(ctx)
	default:
		return nil, e.Wrap(op, fmt.Errorf("%w: unknown credential mode %q", e.ErrConfig, r.cfg.Mode))
	}
}

func (r *Resolver) resolveManaged(ctx context.Context) (*ConnectionConfig, error) {
	const op = "secrets.resolveManaged"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		return r.cached, nil
	}
	if r.cfg.SecretName == "" {
		return nil, e.Wrap(op, fmt.Errorf("%w: DB_SECRET_NAME is required in secretsmanager mode", e.ErrConfig))
	}

	api, err := r.client(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &r.cfg.SecretName,
	})
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: fetching secret %q: %v", e.ErrConfig, r.cfg.SecretName, err))
	}
	if out.SecretString == nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: secret %q has no string payload", e.ErrConfig, r.cfg.SecretName))
	}

	cc, err := parseSecret(*out.SecretString)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	r.cached = cc
	logger.Info().Str("secret", r.cfg.SecretName).Msg("database credentials resolved and cached")
	return cc, nil
}

func (r *Resolver) client(ctx context.Context) (SecretsAPI, error) {
	if r.api != nil {
		return r.api, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS configuration: %v", e.ErrConfig, err)
	}
	r.api = secretsmanager.NewFromConfig(awsCfg)
	return r.api, nil
}

// parseSecret decodes the structured secret payload, accepting the
// alternative key spellings seen across RDS-managed and hand-written
// secrets. The raw payload must never appear in the returned error.
func parseSecret(raw string) (*ConnectionConfig, error) {
	var kv map[string]any
	if err := json.Unmarshal([]byte(raw), &kv); err != nil {
		return nil, fmt.Errorf("%w: secret payload is not valid JSON", e.ErrConfig)
	}

	cc := &ConnectionConfig{
		Host:     stringKey(kv, "host", "hostname"),
		User:     stringKey(kv, "username", "user"),
		Password: stringKey(kv, "password"),
		DBName:   stringKey(kv, "dbname", "database", "db"),
		Port:     portKey(kv),
	}
	if cc.Host == "" || cc.User == "" || cc.DBName == "" {
		return nil, fmt.Errorf("%w: secret payload is missing host, username or dbname", e.ErrConfig)
	}
	return cc, nil
}

func stringKey(kv map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := kv[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// portKey accepts the port as a JSON number or string, defaulting to 5432.
func portKey(kv map[string]any) string {
	switch v := kv["port"].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.Itoa(int(v))
	}
	return "5432"
}
