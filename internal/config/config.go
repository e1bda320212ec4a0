package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings, read from the environment.
type Config struct {
	Addr          string `env:"ADDR" envDefault:":8080"`
	DBPath        string `env:"DB_PATH" envDefault:"puzzlerooms.db"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON       bool   `env:"LOG_JSON" envDefault:"false"`
	TurnTimeLimit int    `env:"TURN_TIME_LIMIT" envDefault:"10"`
	MatchGameType string `env:"MATCH_GAME_TYPE" envDefault:"memory"`
	TokenKey      string `env:"TOKEN_KEY,required"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
