package config

// DB holds the database configuration settings.
type DB struct {
	Extras   string // extra DSN parameters, e.g. sslmode=disable
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}
