package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DispatchModePool  = "pool"
	DispatchModeQueue = "queue"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	DatabaseURL string
	DBTracing   bool

	SupabaseURL            string
	SupabaseJWTSecret      string
	SupabaseServiceRoleKey string

	RedisURL           string
	RecipeCacheEnabled bool

	OpenAIKey    string
	GroqKey      string
	CerebrasKey  string
	StabilityKey string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port string

	RecipeGeneration RecipeGenerationConfig
	ImageGeneration  ImageGenerationConfig
	Storage          StorageConfig
	Dispatcher       DispatcherConfig
}

type RecipeGenerationConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	FallbackEnabled  bool   `yaml:"fallback_enabled"`
	FallbackProvider string `yaml:"fallback_provider"`
}

type ImageGenerationConfig struct {
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	Size              string `yaml:"size"`
	Quality           string `yaml:"quality"`
	MaxRetries        int    `yaml:"max_retries"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// StorageConfig selects the object store that receives step images.
// Backend is one of "supabase", "s3" or "par".
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PublicURL string `yaml:"public_url"`
	PARURL    string `yaml:"par_url"`
}

type DispatcherConfig struct {
	Mode        string        `yaml:"mode"`
	Capacity    int           `yaml:"capacity"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		DBTracing:                envBool("DB_TRACING"),
		SupabaseURL:              os.Getenv("SUPABASE_URL"),
		SupabaseJWTSecret:        os.Getenv("SUPABASE_JWT_SECRET"),
		SupabaseServiceRoleKey:   os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		RecipeCacheEnabled:       envBool("RECIPE_CACHE_ENABLED"),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		GroqKey:                  os.Getenv("GROQ_API_KEY"),
		CerebrasKey:              os.Getenv("CEREBRAS_API_KEY"),
		StabilityKey:             os.Getenv("STABILITY_API_KEY"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
	}

	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sizzle"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.SetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		RecipeGeneration RecipeGenerationConfig `yaml:"recipe_generation"`
		ImageGeneration  ImageGenerationConfig  `yaml:"image_generation"`
		Storage          StorageConfig          `yaml:"storage"`
		Dispatcher       DispatcherConfig       `yaml:"dispatcher"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	rg := yamlConfig.RecipeGeneration
	setString(&c.RecipeGeneration.Provider, rg.Provider)
	setString(&c.RecipeGeneration.Model, rg.Model)
	setString(&c.RecipeGeneration.FallbackProvider, rg.FallbackProvider)
	if rg.FallbackEnabled {
		c.RecipeGeneration.FallbackEnabled = true
	}

	ig := yamlConfig.ImageGeneration
	setString(&c.ImageGeneration.Provider, ig.Provider)
	setString(&c.ImageGeneration.Model, ig.Model)
	setString(&c.ImageGeneration.Size, ig.Size)
	setString(&c.ImageGeneration.Quality, ig.Quality)
	if ig.MaxRetries > 0 {
		c.ImageGeneration.MaxRetries = ig.MaxRetries
	}
	if ig.RequestsPerMinute > 0 {
		c.ImageGeneration.RequestsPerMinute = ig.RequestsPerMinute
	}

	st := yamlConfig.Storage
	setString(&c.Storage.Backend, st.Backend)
	setString(&c.Storage.Bucket, st.Bucket)
	setString(&c.Storage.Region, st.Region)
	setString(&c.Storage.Endpoint, st.Endpoint)
	setString(&c.Storage.PublicURL, st.PublicURL)
	setString(&c.Storage.PARURL, st.PARURL)

	d := yamlConfig.Dispatcher
	setString(&c.Dispatcher.Mode, d.Mode)
	if d.Capacity > 0 {
		c.Dispatcher.Capacity = d.Capacity
	}
	if d.WaitTimeout > 0 {
		c.Dispatcher.WaitTimeout = d.WaitTimeout
	}

	return nil
}

// applyEnvOverrides lets deployments tweak the structured sections without a config file.
func (c *Config) applyEnvOverrides() {
	setString(&c.RecipeGeneration.Provider, os.Getenv("RECIPE_PROVIDER"))
	setString(&c.RecipeGeneration.Model, os.Getenv("OPENAI_MODEL"))
	setString(&c.ImageGeneration.Provider, os.Getenv("IMAGE_PROVIDER"))
	setString(&c.Storage.Backend, os.Getenv("STORAGE_BACKEND"))
	setString(&c.Storage.Bucket, os.Getenv("STORAGE_BUCKET"))
	setString(&c.Storage.Region, os.Getenv("AWS_REGION"))
	setString(&c.Storage.PARURL, os.Getenv("OCI_PAR_URL"))
	setString(&c.Dispatcher.Mode, os.Getenv("IMAGE_DISPATCH_MODE"))

	if n, err := strconv.Atoi(os.Getenv("MAX_RETRIES")); err == nil && n > 0 {
		c.ImageGeneration.MaxRetries = n
	}
	if n, err := strconv.Atoi(os.Getenv("IMAGE_WORKERS")); err == nil && n > 0 {
		c.Dispatcher.Capacity = n
	}
}

func (c *Config) SetDefaults() {
	if c.RecipeGeneration.Provider == "" {
		c.RecipeGeneration.Provider = "openai"
		c.RecipeGeneration.FallbackEnabled = true
	}
	if c.RecipeGeneration.Model == "" {
		c.RecipeGeneration.Model = "gpt-4o"
	}
	if c.RecipeGeneration.FallbackProvider == "" {
		c.RecipeGeneration.FallbackProvider = "groq"
	}

	if c.ImageGeneration.Provider == "" {
		c.ImageGeneration.Provider = "openai"
	}
	if c.ImageGeneration.Model == "" {
		c.ImageGeneration.Model = "dall-e-3"
	}
	if c.ImageGeneration.Size == "" {
		c.ImageGeneration.Size = "1792x1024"
	}
	if c.ImageGeneration.Quality == "" {
		c.ImageGeneration.Quality = "standard"
	}
	if c.ImageGeneration.MaxRetries == 0 {
		c.ImageGeneration.MaxRetries = 3
	}
	if c.ImageGeneration.RequestsPerMinute == 0 {
		c.ImageGeneration.RequestsPerMinute = 50
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "supabase"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "sizzle-media"
	}

	if c.Dispatcher.Mode == "" {
		c.Dispatcher.Mode = DispatchModePool
	}
	if c.Dispatcher.Capacity == 0 {
		c.Dispatcher.Capacity = 5
	}
	if c.Dispatcher.WaitTimeout == 0 {
		c.Dispatcher.WaitTimeout = 5 * time.Minute
	}
}

// RequireAuth checks the settings the HTTP server needs to verify Supabase tokens.
func (c *Config) RequireAuth() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	return nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.Dispatcher.Mode {
	case DispatchModePool, DispatchModeQueue:
	default:
		return fmt.Errorf("unknown dispatcher mode %q", c.Dispatcher.Mode)
	}
	if c.Dispatcher.Capacity < 1 {
		return fmt.Errorf("dispatcher capacity must be at least 1")
	}
	if c.RedisURL == "" && (c.Dispatcher.Mode == DispatchModeQueue || c.RecipeCacheEnabled) {
		return fmt.Errorf("REDIS_URL is required for queue dispatch and the recipe cache")
	}
	switch c.Storage.Backend {
	case "supabase":
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required for supabase storage")
		}
	case "s3":
	case "par":
		if c.Storage.PARURL == "" {
			return fmt.Errorf("OCI_PAR_URL is required for par storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
