package config

import "github.com/caarlos0/env/v11"

type Config struct {
	APIBaseURL         string `env:"API_URL,required,notEmpty"`
	DBPath             string `env:"DB_PATH"              envDefault:"bookworm.sqlite"`
	PageSize           int    `env:"PAGE_SIZE"            envDefault:"3"`
	HTTPTimeoutSeconds int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"20"`
	RefreshSpec        string `env:"REFRESH_SPEC"         envDefault:"@every 5m"`
}

func LoadConfig() Config {
	var cfg Config
	env.Must(cfg, env.Parse(&cfg))
	return cfg
}
