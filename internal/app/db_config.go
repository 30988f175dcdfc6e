package app

import (
	"strings"

	"github.com/charlesng35/shortlink/internal/database"
)

// StoreConfig converts the application database configuration into the
// database package representation. Host based parameters come from whichever
// vendor block is enabled.
func (c DatabaseConfig) StoreConfig() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var auth DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		auth = c.Postgres
	case "mysql":
		auth = c.MySQL
	}

	if auth.Enabled {
		cfg.Host = strings.TrimSpace(auth.Host)
		cfg.Port = auth.Port
		cfg.Name = strings.TrimSpace(auth.Database)
		cfg.User = strings.TrimSpace(auth.Username)
		cfg.Password = auth.Password
	}

	return cfg
}
