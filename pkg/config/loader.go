package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from the process environment using `env` tags:
//
//	type Config struct {
//	    Port    int           `env:"HTTP_PORT" envDefault:"8087"`
//	    Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`
//	}
//
// Defaults apply when a variable is unset; fields tagged required fail
// the parse when missing.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
