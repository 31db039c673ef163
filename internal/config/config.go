package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuracion del servicio.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	JWTAccessSecret    string `env:"JWT_ACCESS_SECRET,required"`
	JWTRefreshSecret   string `env:"JWT_REFRESH_SECRET,required"`
	AccessTTLMinutes   int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	RefreshTTLDays     int    `env:"JWT_REFRESH_TTL_DAYS" envDefault:"15"`
	RefreshCookieDays  int    `env:"REFRESH_COOKIE_DAYS" envDefault:"7"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	GeoIPDBPath string `env:"GEOIP_DB_PATH"`

	// SessionRetentionDays > 0 activa el barrido de sesiones viejas.
	SessionRetentionDays int `env:"SESSION_RETENTION_DAYS" envDefault:"0"`
}

// IsProduction indica si el servicio corre en produccion.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LoadConfig carga la configuracion desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
