package config

import (
	"strconv"
	"strings"
	"time"
)

const envPrefix = "TASKKEEPER_"

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv overlays TASKKEEPER_* variables. Values that fail to parse are
// ignored and the previous layer's value is kept.
func parseEnv(config *Config, lookup lookupFunc) {
	envString(lookup, "HTTP_ADDR", &config.HTTPAddr)
	envString(lookup, "GRPC_HEALTH_ADDR", &config.GRPCHealthAddr)
	envString(lookup, "DATABASE_DSN", &config.DatabaseDSN)
	envString(lookup, "SECRET_KEY", &config.SecretKey)
	envDuration(lookup, "TOKEN_VALIDITY", &config.TokenValidityDuration)
	envDuration(lookup, "STORAGE_TIMEOUT", &config.StorageTimeout)
	envDuration(lookup, "SHUTDOWN_TIMEOUT", &config.ShutdownTimeout)
	envInt(lookup, "BCRYPT_COST", &config.BcryptCost)
	envString(lookup, "LOG_LEVEL", &config.LogLevel)

	envString(lookup, "AVATAR_BACKEND", &config.AvatarBackend)
	if v, ok := lookup(envPrefix + "MAX_AVATAR_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxAvatarBytes = n
		}
	}
	envString(lookup, "S3_ROOT_USER", &config.S3RootUser)
	envString(lookup, "S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString(lookup, "S3_BUCKET", &config.S3Bucket)
	envString(lookup, "S3_REGION", &config.S3Region)
	envString(lookup, "S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	envString(lookup, "REDIS_ADDR", &config.RedisAddr)
	envString(lookup, "REDIS_PASSWORD", &config.RedisPassword)
	envInt(lookup, "REDIS_DB", &config.RedisDB)
	envInt(lookup, "SIGNUP_RATE_LIMIT", &config.SignupRateLimit)
	envInt(lookup, "LOGIN_RATE_LIMIT", &config.LoginRateLimit)
	if v, ok := lookup(envPrefix + "TRUSTED_PROXIES"); ok {
		config.TrustedProxies = splitList(v)
	}
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(lookup lookupFunc, key string, dst *string) {
	if v, ok := lookup(envPrefix + key); ok {
		*dst = v
	}
}

func envInt(lookup lookupFunc, key string, dst *int) {
	if v, ok := lookup(envPrefix + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(lookup lookupFunc, key string, dst *time.Duration) {
	if v, ok := lookup(envPrefix + key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
