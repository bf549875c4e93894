// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"

	"github.com/floortrack/floortrack/internal/config"
)

// Create builds the postgres Data Source Name from the configuration.
func Create(dbCfg *config.Config) string {
	out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s %s",
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Name,
		dbCfg.DB.Extras,
	)

	return out
}
