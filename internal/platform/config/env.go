// Package config loads process configuration from the environment.
//
// All forcesync processes read environment variables prefixed with
// FORCESYNC_ into tagged structs, then overlay command-line flags on top
// (see internal/cmd). Flags always win over environment values.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
