package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"gitlab.connectwisedev.com/catalog-service/pkg/config"
	"gitlab.connectwisedev.com/catalog-service/pkg/e"
)

type fakeSecretsAPI struct {
	payload string
	err     error
	calls   int
}

func (f *fakeSecretsAPI) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &f.payload}, nil
}

func TestResolve_DirectMode(t *testing.T) {
	api := &fakeSecretsAPI{}
	r := NewResolverWithAPI(&config.DBConfig{
		Mode:     config.ModeDirect,
		Host:     "db.local",
		Port:     "5433",
		User:     "app",
		Password: "pw",
		DBName:   "catalog",
	}, api)

	cc, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cc.Host != "db.local" || cc.Port != "5433" || cc.User != "app" {
		t.Fatalf("unexpected config: %+v", cc)
	}
	if api.calls != 0 {
		t.Fatalf("direct mode must not call the secret store, got %d calls", api.calls)
	}
}

func TestResolve_ManagedSecretCachedForProcessLifetime(t *testing.T) {
	api := &fakeSecretsAPI{
		payload: `{"host":"db.prod","username":"app","password":"pw","dbname":"catalog","port":5432}`,
	}
	r := NewResolverWithAPI(&config.DBConfig{
		Mode:       config.ModeSecretsManager,
		SecretName: "catalog/db",
	}, api)

	first, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Host != "db.prod" || first.Port != "5432" || first.User != "app" {
		t.Fatalf("unexpected config: %+v", first)
	}

	second, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second != first {
		t.Fatal("expected the cached config to be returned")
	}
	if api.calls != 1 {
		t.Fatalf("expected 1 secret fetch, got %d", api.calls)
	}
}

func TestResolve_NormalizesAlternateKeySpellings(t *testing.T) {
	api := &fakeSecretsAPI{
		payload: `{"hostname":"db.alt","user":"svc","password":"pw","database":"catalog","port":"6432"}`,
	}
	r := NewResolverWithAPI(&config.DBConfig{
		Mode:       config.ModeSecretsManager,
		SecretName: "catalog/db",
	}, api)

	cc, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cc.Host != "db.alt" || cc.User != "svc" || cc.DBName != "catalog" || cc.Port != "6432" {
		t.Fatalf("unexpected config: %+v", cc)
	}
}

func TestResolve_PortDefaults(t *testing.T) {
	api := &fakeSecretsAPI{
		payload: `{"host":"db","username":"app","password":"pw","dbname":"catalog"}`,
	}
	r := NewResolverWithAPI(&config.DBConfig{
		Mode:       config.ModeSecretsManager,
		SecretName: "catalog/db",
	}, api)

	cc, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cc.Port != "5432" {
		t.Fatalf("expected default port, got %s", cc.Port)
	}
}

func TestResolve_MalformedSecretIsConfigError(t *testing.T) {
	api := &fakeSecretsAPI{payload: `s3cr3t-not-json`}
	r := NewResolverWithAPI(&config.DBConfig{
		Mode:       config.ModeSecretsManager,
		SecretName: "catalog/db",
	}, api)

	_, err := r.Resolve(context.Background())
	if !errors.Is(err, e.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	// The raw payload must never leak into error messages.
	if strings.Contains(err.Error(), "s3cr3t") {
		t.Fatalf("secret payload leaked into error: %v", err)
	}
}

func TestResolve_MissingSecretName(t *testing.T) {
	r := NewResolverWithAPI(&config.DBConfig{Mode: config.ModeSecretsManager}, &fakeSecretsAPI{})

	_, err := r.Resolve(context.Background())
	if !errors.Is(err, e.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestResolve_UnknownMode(t *testing.T) {
	r := NewResolverWithAPI(&config.DBConfig{Mode: "vault"}, &fakeSecretsAPI{})

	_, err := r.Resolve(context.Background())
	if !errors.Is(err, e.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
