package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/budget-review/internal/domain/budget"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		MaxUploadMB  int64         `yaml:"maxUploadMB"`
		CORSOrigins  []string      `yaml:"corsOrigins"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	AI struct {
		Provider    string  `yaml:"provider"`
		APIKey      string  `yaml:"apiKey"`
		Model       string  `yaml:"model"`
		Temperature float32 `yaml:"temperature"`
		BaseURL     string  `yaml:"baseURL"`
	} `yaml:"ai"`

	Heuristics budget.Policy `yaml:"heuristics"`

	Auth struct {
		// APIKeys maps an API key to the user it identifies.
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity        int     `yaml:"capacity"`
		RefillPerSecond float64 `yaml:"refillPerSecond"`
	} `yaml:"rateLimit"`

	Demo struct {
		Tokens []string `yaml:"tokens"`
	} `yaml:"demo"`
}

// Default returns a config usable without any file: no database, no archive,
// fallback-only reviews.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load baca file config.yaml, lalu override dari environment
func Load(path string) (*Config, error) {
	// .env opsional
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// narrative requests can take a while
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = ProviderOpenAI
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.25
	}
	def := budget.DefaultPolicy()
	if c.Heuristics.GrowthThresholdPct == 0 {
		c.Heuristics.GrowthThresholdPct = def.GrowthThresholdPct
	}
	if c.Heuristics.DeclineThresholdPct == 0 {
		c.Heuristics.DeclineThresholdPct = def.DeclineThresholdPct
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 30
	}
	if c.RateLimit.RefillPerSecond == 0 {
		c.RateLimit.RefillPerSecond = 0.5
	}
	if len(c.Demo.Tokens) == 0 {
		c.Demo.Tokens = append([]string(nil), budget.DefaultDemoTokens...)
	}
}

// applyEnv lets secrets stay out of the YAML file.
func (c *Config) applyEnv() {
	switch c.AI.Provider {
	case ProviderOpenAI:
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.AI.APIKey = v
		}
	case ProviderGemini:
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.AI.APIKey = v
		}
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxUploadMB < 0 {
		errs = append(errs, errors.New("server.maxUploadMB must not be negative"))
	}
	switch c.Database.Driver {
	case "", DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q not supported", c.Database.Driver))
	}
	if c.Database.Driver != "" && c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port %d out of range", c.Database.Port))
	}
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("ai.provider %q not supported", c.AI.Provider))
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		errs = append(errs, errors.New("minio.endpoint and minio.bucketName are required when minio is enabled"))
	}
	return errors.Join(errs...)
}

// PersistenceEnabled reports whether a database driver is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.Database.Driver != ""
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq key/value connection string.
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	parts := []string{
		"host=" + quoteDSN(c.Database.Host),
		fmt.Sprintf("port=%d", c.Database.Port),
		"user=" + quoteDSN(c.Database.User),
		"password=" + quoteDSN(c.Database.Password),
		"dbname=" + quoteDSN(c.Database.Name),
		"sslmode=" + ssl,
	}
	return strings.Join(parts, " ")
}

func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
