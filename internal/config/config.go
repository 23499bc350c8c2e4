package config // package config loads application configuration from environment variables

import (
	"errors"
	"io/fs"
	"log" // log is used to report configuration errors and halt execution
	"net"
	"os" // os provides access to environment variables
	"time"

	"github.com/joho/godotenv" // optional .env file support
)

// Config holds the runtime configuration of the HTTP service.  Every field
// has a default so the service starts with no environment at all, bound to
// 0.0.0.0:5000 with the keyless digest scheme.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Host            string        // interface to bind
	Port            string        // HTTP port to listen on
	LogLevel        string        // debug, info, warn, error or off
	BodyLimit       string        // maximum request body, Echo size syntax ("1M")
	SignatureScheme string        // digest, hmac or jws
	SignatureSecret string        // shared secret for the keyed schemes
	ShutdownTimeout time.Duration // grace period for in-flight requests
}

// Load reads configuration values from environment variables and returns a
// Config.  Call LoadEnvFile first to merge a .env file into the environment.
func Load() Config {
	return Config{
		Env:             envStr("APP_ENV", "dev"),
		Host:            envStr("APP_HOST", "0.0.0.0"),
		Port:            envStr("APP_PORT", "5000"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		BodyLimit:       envStr("BODY_LIMIT", "1M"),
		SignatureScheme: envStr("SIGNATURE_SCHEME", "digest"),
		SignatureSecret: os.Getenv("SIGNATURE_SECRET"), // empty allowed for the digest scheme
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// LoadEnvFile merges the file named by ENV_FILE (default ".env") into the
// process environment.  Variables already set take precedence and a missing
// file is not an error.
func LoadEnvFile() error {
	path := envStr("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
