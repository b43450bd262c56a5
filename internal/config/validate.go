package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct-tag rules and cross-field
// constraints that `validate` tags can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database.driver is postgres")
	}
	if cfg.Auth.AccessTokenSecret == cfg.Auth.RefreshTokenSecret {
		return fmt.Errorf("auth.access_token_secret and auth.refresh_token_secret must differ")
	}
	return nil
}
