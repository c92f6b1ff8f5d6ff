package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/taskkeeper/internal/flagx"
	"github.com/dmitrijs2005/taskkeeper/internal/timex"
)

// JsonConfig mirrors Config for decoding. Pointer fields distinguish an
// absent key from a zero value, so a partial file only overrides what it names.
type JsonConfig struct {
	HTTPAddr              *string         `json:"http_addr"`
	GRPCHealthAddr        *string         `json:"grpc_health_addr"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	StorageTimeout        *timex.Duration `json:"storage_timeout"`
	ShutdownTimeout       *timex.Duration `json:"shutdown_timeout"`
	BcryptCost            *int            `json:"bcrypt_cost"`
	LogLevel              *string         `json:"log_level"`

	AvatarBackend  *string `json:"avatar_backend"`
	MaxAvatarBytes *int64  `json:"max_avatar_bytes"`
	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`

	RedisAddr       *string  `json:"redis_addr"`
	RedisPassword   *string  `json:"redis_password"`
	RedisDB         *int     `json:"redis_db"`
	SignupRateLimit *int     `json:"signup_rate_limit"`
	LoginRateLimit  *int     `json:"login_rate_limit"`
	TrustedProxies  []string `json:"trusted_proxies"`
}

// parseJson overlays the JSON file named by -c/-config onto config.
// No flag means nothing to load; an unreadable or invalid file panics,
// since the server must not start on a half-applied configuration.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.StorageTimeout != nil {
		config.StorageTimeout = c.StorageTimeout.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.AvatarBackend, c.AvatarBackend)
	if c.MaxAvatarBytes != nil {
		config.MaxAvatarBytes = *c.MaxAvatarBytes
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setInt(&config.SignupRateLimit, c.SignupRateLimit)
	setInt(&config.LoginRateLimit, c.LoginRateLimit)
	if c.TrustedProxies != nil {
		config.TrustedProxies = c.TrustedProxies
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
