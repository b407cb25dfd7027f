package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Minio     MinioConfig     `yaml:"minio"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Users     []User          `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects where contract records live.
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, postgres
	DSN    string `yaml:"dsn"`
}

// ArtifactsConfig selects where signature images and finalized PDFs live.
type ArtifactsConfig struct {
	Driver   string `yaml:"driver"` // local, minio
	LocalDir string `yaml:"local_dir"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// User is a statically configured account. Workspaces lists the workspace ids
// the user may access; "*" grants all.
type User struct {
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	UserID     string   `yaml:"user_id"`
	Email      string   `yaml:"email"`
	Workspaces []string `yaml:"workspaces"`
}

const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	ArtifactsLocal = "local"
	ArtifactsMinio = "minio"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	if c.Artifacts.Driver == "" {
		c.Artifacts.Driver = ArtifactsLocal
	}
	if c.Artifacts.LocalDir == "" {
		c.Artifacts.LocalDir = "./data"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 100
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	for i := range c.Users {
		if c.Users[i].UserID == "" {
			c.Users[i].UserID = c.Users[i].Username
		}
	}
}

// Validate checks driver selections and their required settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Artifacts.Driver {
	case ArtifactsLocal:
	case ArtifactsMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return fmt.Errorf("minio.endpoint and minio.bucket are required for artifacts driver %q", c.Artifacts.Driver)
		}
	default:
		return fmt.Errorf("unknown artifacts.driver %q", c.Artifacts.Driver)
	}
	return nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
