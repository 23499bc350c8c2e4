package config

import "strings"

// DatabaseConfig selects the quote store.  Driver is "sqlite", "mysql" or
// empty; an empty driver disables the quote API.
type DatabaseConfig struct {
	Driver   string
	Path     string // sqlite DSN
	User     string
	Pass     string
	Host     string
	Port     string
	Name     string
	SeedFile string // optional JSON array of {"id","text"} loaded at startup
}

// Enabled reports whether a quote store is configured.
func (c DatabaseConfig) Enabled() bool { return c.Driver != "" }

// LoadDatabaseConfig reads DB_* variables.  MySQL connection settings are
// required once DB_DRIVER=mysql.
func LoadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		Driver:   strings.ToLower(envStr("DB_DRIVER", "")),
		SeedFile: envStr("DB_SEED_FILE", ""),
	}
	switch cfg.Driver {
	case "sqlite":
		cfg.Path = envStr("DB_PATH", "file:quotes.db")
	case "mysql":
		cfg.User = must("DB_USER")
		cfg.Pass = envStr("DB_PASS", "") // empty allowed
		cfg.Host = must("DB_HOST")
		cfg.Port = envStr("DB_PORT", "3306")
		cfg.Name = must("DB_NAME")
	}
	return cfg
}
