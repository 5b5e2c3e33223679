// server/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           string `mapstructure:"port"`
	Mode           string `mapstructure:"mode"`
	AllowedOrigins string `mapstructure:"allowedOrigins"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

// TTL parses Expiration, falling back to 15 days.
func (j JWTConfig) TTL() time.Duration {
	d, err := time.ParseDuration(j.Expiration)
	if err != nil || d <= 0 {
		return 360 * time.Hour
	}
	return d
}

type MediaConfig struct {
	Driver string `mapstructure:"driver"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"useSSL"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	AuthPerMinute int `mapstructure:"authPerMinute"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Media     MediaConfig     `mapstructure:"media"`
	S3        S3Config        `mapstructure:"s3"`
	Minio     MinioConfig     `mapstructure:"minio"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

var envBindings = map[string]string{
	"server.port":             "PORT",
	"server.mode":             "GIN_MODE",
	"server.allowedOrigins":   "CORS_ORIGINS",
	"mongo.uri":               "MONGO_URI",
	"mongo.dbName":            "MONGO_DBNAME",
	"jwt.secret":              "JWT_SECRET",
	"jwt.expiration":          "JWT_EXPIRATION",
	"media.driver":            "MEDIA_DRIVER",
	"s3.bucket":               "S3_BUCKET",
	"s3.region":               "S3_REGION",
	"s3.accessKeyID":          "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":      "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":     "S3_CLOUDFRONT_DOMAIN",
	"minio.endpoint":          "MINIO_ENDPOINT",
	"minio.accessKey":         "MINIO_ACCESS_KEY",
	"minio.secretKey":         "MINIO_SECRET_KEY",
	"minio.bucket":            "MINIO_BUCKET",
	"minio.useSSL":            "MINIO_USE_SSL",
	"log.level":               "LOG_LEVEL",
	"log.format":              "LOG_FORMAT",
	"rateLimit.authPerMinute": "RATE_LIMIT_AUTH_PER_MINUTE",
}

// LoadConfig reads config.yaml from path (optional) and overrides it with
// environment variables. A .env file in the working directory is loaded first.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional; a missing file leaves the environment untouched.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowedOrigins", "*")
	v.SetDefault("mongo.dbName", "carmarket")
	v.SetDefault("jwt.expiration", "360h")
	v.SetDefault("media.driver", "s3")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("rateLimit.authPerMinute", 20)

	v.AutomaticEnv()
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	err = config.validate()
	return
}

func (c Config) validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri (MONGO_URI) is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret (JWT_SECRET) is required")
	}
	switch c.Media.Driver {
	case "s3", "minio":
	default:
		return fmt.Errorf("unknown media.driver %q", c.Media.Driver)
	}
	return nil
}
