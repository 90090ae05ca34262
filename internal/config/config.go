package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppHost string        `mapstructure:"host"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Storage StorageConfig `mapstructure:"storage"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Log     LogConfig     `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type StorageConfig struct {
	Driver string   `mapstructure:"driver"`
	Path   string   `mapstructure:"path"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Load reads configs/settings.yml from the working directory or /configs and
// lets environment variables override any key (jwt.secret -> JWT_SECRET).
func Load() (*Config, error) {
	return load("./configs", "/configs")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("settings")
	v.SetConfigType("yml")
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Env overrides only reach keys viper knows about, so every key gets a default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("db.source", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.refresh_ttl", 24*time.Hour)
	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.path", "./data/files")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Config) Validate() error {
	if c.DB.Source == "" {
		return errors.New("db.source is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt token lifetimes must be positive")
	}
	switch c.Storage.Driver {
	case StorageDriverLocal:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the local driver")
		}
	case StorageDriverS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return errors.New("storage.driver must be one of: local, s3")
	}
	return nil
}
