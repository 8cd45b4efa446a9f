package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// the ops HTTP server, the Postgres connection, and the ingestion pipeline.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_DB=capitolledger
//	PIPELINE_WORKERS=8
//	FUZZY_THRESHOLD=85
//	REVIEW_CONFIDENCE_CUTOFF=0.5
//	REGISTRY_TIMEOUT=2s
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Postgres PostgresConfig // PostgreSQL connection settings
	Pipeline PipelineConfig // Ingestion tuning
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// PipelineConfig tunes normalization, linking and review selection.
type PipelineConfig struct {
	Workers                int
	BatchSize              int
	FuzzyThreshold         int           // 0..100, issuer-name match floor
	OwnerFuzzyThreshold    int           // 0..100, owner synonym match floor
	ReviewConfidenceCutoff float64       // trades below this ticker confidence are reviewed
	ReviewUnresolvedOwner  bool          // queue rows whose owner could not be resolved
	SampleSize             int           // samples kept per report category
	RegistryTimeout        time.Duration // per registry call
	RegistryRetries        int
	CompanyDictionaryPath  string // optional YAML merged over the built-in table
	MemberCacheTTL         time.Duration
	CSVDelimiter           string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
// All services should import this package and read from AppConfig instead of
// reloading environment variables directly.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or out of range, validateConfig() terminates
//     the app with a descriptive log message.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "capitolledger")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("PIPELINE_WORKERS", 4)
	viper.SetDefault("PIPELINE_BATCH_SIZE", 500)
	viper.SetDefault("FUZZY_THRESHOLD", 85)
	viper.SetDefault("OWNER_FUZZY_THRESHOLD", 70)
	viper.SetDefault("REVIEW_CONFIDENCE_CUTOFF", 0.5)
	viper.SetDefault("REVIEW_UNRESOLVED_OWNER", true)
	viper.SetDefault("SAMPLE_SIZE", 5)
	viper.SetDefault("REGISTRY_TIMEOUT", "2s")
	viper.SetDefault("REGISTRY_RETRIES", 3)
	viper.SetDefault("COMPANY_DICTIONARY_PATH", "")
	viper.SetDefault("MEMBER_CACHE_TTL", "10m")
	viper.SetDefault("CSV_DELIMITER", ",")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Pipeline: PipelineConfig{
			Workers:                viper.GetInt("PIPELINE_WORKERS"),
			BatchSize:              viper.GetInt("PIPELINE_BATCH_SIZE"),
			FuzzyThreshold:         viper.GetInt("FUZZY_THRESHOLD"),
			OwnerFuzzyThreshold:    viper.GetInt("OWNER_FUZZY_THRESHOLD"),
			ReviewConfidenceCutoff: viper.GetFloat64("REVIEW_CONFIDENCE_CUTOFF"),
			ReviewUnresolvedOwner:  viper.GetBool("REVIEW_UNRESOLVED_OWNER"),
			SampleSize:             viper.GetInt("SAMPLE_SIZE"),
			RegistryTimeout:        viper.GetDuration("REGISTRY_TIMEOUT"),
			RegistryRetries:        viper.GetInt("REGISTRY_RETRIES"),
			CompanyDictionaryPath:  viper.GetString("COMPANY_DICTIONARY_PATH"),
			MemberCacheTTL:         viper.GetDuration("MEMBER_CACHE_TTL"),
			CSVDelimiter:           viper.GetString("CSV_DELIMITER"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// Comma returns the configured CSV delimiter as a rune, defaulting to ','.
func (p PipelineConfig) Comma() rune {
	for _, r := range p.CSVDelimiter {
		return r
	}
	return ','
}

// validateConfig ensures required variables are present and pipeline settings are in
// range, terminating the application otherwise.
func validateConfig() {
	if problems := configProblems(AppConfig); len(problems) > 0 {
		log.Fatalf("invalid configuration: %v\n", problems)
	}
}

// configProblems lists missing or out-of-range settings.
func configProblems(c Config) []string {
	var missing []string

	if c.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if c.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if c.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if c.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if c.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if c.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}

	p := c.Pipeline
	if p.Workers < 1 {
		missing = append(missing, "PIPELINE_WORKERS must be >= 1")
	}
	if p.BatchSize < 1 {
		missing = append(missing, "PIPELINE_BATCH_SIZE must be >= 1")
	}
	if p.FuzzyThreshold < 1 || p.FuzzyThreshold > 100 {
		missing = append(missing, "FUZZY_THRESHOLD must be in 1..100")
	}
	if p.OwnerFuzzyThreshold < 1 || p.OwnerFuzzyThreshold > 100 {
		missing = append(missing, "OWNER_FUZZY_THRESHOLD must be in 1..100")
	}
	if p.ReviewConfidenceCutoff < 0 || p.ReviewConfidenceCutoff > 1 {
		missing = append(missing, "REVIEW_CONFIDENCE_CUTOFF must be in 0..1")
	}
	if p.RegistryTimeout <= 0 {
		missing = append(missing, "REGISTRY_TIMEOUT must be positive")
	}
	if p.RegistryRetries < 0 {
		missing = append(missing, "REGISTRY_RETRIES must be >= 0")
	}
	return missing
}
