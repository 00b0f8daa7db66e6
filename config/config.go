package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Minio         MinioConfig         `yaml:"minio"`
	CCA           CCAConfig           `yaml:"cca"`
	Validation    ValidationConfig    `yaml:"validation"`
	Poller        PollerConfig        `yaml:"poller"`
	Impersonation ImpersonationConfig `yaml:"impersonation"`
	Auth          AuthConfig          `yaml:"auth"`
	Users         []User              `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// CCAConfig points at the external canonical-validation agent. An empty
// base URL puts the pipeline in dev mode: drafts are echoed back as
// canonical instead of calling out.
type CCAConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ClientID       string `yaml:"client_id"`
	MatterID       string `yaml:"matter_id"`
}

type ValidationConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type PollerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type ImpersonationConfig struct {
	MinReasonLength int `yaml:"min_reason_length"`
	StaleAfterHours int `yaml:"stale_after_hours"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	ID             string `yaml:"id"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	OrganizationID string `yaml:"organization_id"`
	PlatformAdmin  bool   `yaml:"platform_admin"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.CCA.TimeoutSeconds == 0 {
		cfg.CCA.TimeoutSeconds = 120
	}
	if cfg.Validation.Workers == 0 {
		cfg.Validation.Workers = 2
	}
	if cfg.Validation.QueueSize == 0 {
		cfg.Validation.QueueSize = 16
	}
	if cfg.Poller.IntervalSeconds == 0 {
		cfg.Poller.IntervalSeconds = 10
	}
	if cfg.Impersonation.MinReasonLength == 0 {
		cfg.Impersonation.MinReasonLength = 5
	}
	if cfg.Impersonation.StaleAfterHours == 0 {
		cfg.Impersonation.StaleAfterHours = 8
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}

	GlobalConfig = &cfg
	return &cfg, nil
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

// FindUserByID finds a user by id
func (c *Config) FindUserByID(id string) *User {
	for i := range c.Users {
		if c.Users[i].ID == id {
			return &c.Users[i]
		}
	}
	return nil
}
