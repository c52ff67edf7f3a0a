package config

import "os"

// Credential resolution modes.
const (
	ModeDirect         = "direct"
	ModeSecretsManager = "secretsmanager"
)

// DBConfig selects how database credentials are resolved and carries the
// direct-mode values. In secretsmanager mode only SecretName is used and
// the connection parameters come from the secret payload.
type DBConfig struct {
	Mode       string
	SecretName string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
}

// APIConfig configures the catalog API handler.
type APIConfig struct {
	AllowOrigin string
	AdminGroup  string
}

// ImagesConfig configures the image-listing handler. The endpoint is any
// S3-compatible object store.
type ImagesConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	Prefix        string
	PublicBaseURL string
}

// LoadDB reads the database credential configuration.
func LoadDB() *DBConfig {
	return &DBConfig{
		Mode:       getEnvOrDefault("DB_MODE", ModeDirect),
		SecretName: os.Getenv("DB_SECRET_NAME"),
		Host:       getEnvOrDefault("DB_HOST", "localhost"),
		Port:       getEnvOrDefault("DB_PORT", "5432"),
		User:       os.Getenv("DB_USER"),
		Password:   os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
	}
}

// LoadAPI reads the catalog API configuration.
func LoadAPI() *APIConfig {
	return &APIConfig{
		AllowOrigin: getEnvOrDefault("CORS_ALLOW_ORIGIN", "*"),
		AdminGroup:  getEnvOrDefault("ADMIN_GROUP", "admin"),
	}
}

// LoadImages reads the image-listing configuration.
func LoadImages() *ImagesConfig {
	return &ImagesConfig{
		Endpoint:      getEnvOrDefault("S3_ENDPOINT", "s3.amazonaws.com"),
		AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		SecretKey:     os.Getenv("S3_SECRET_KEY"),
		UseSSL:        getEnvOrDefault("S3_USE_SSL", "true") == "true",
		Bucket:        os.Getenv("BUCKET_NAME"),
		Prefix:        getEnvOrDefault("IMAGE_PREFIX", "images/"),
		PublicBaseURL: os.Getenv("PUBLIC_ASSET_BASE_URL"),
	}
}

// getEnvOrDefault returns the value of the environment variable or the
// default when unset.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
