package config

import "github.com/caarlos0/env/v10"

// EnvPrefix is prepended to every variable name read by parseEnv, e.g.
// GOPHAUTH_SECRET_KEY.
const EnvPrefix = "GOPHAUTH_"

// parseEnv overlays variables that are set on top of the current values.
// Unset variables leave the field untouched.
func parseEnv(config *Config) error {
	return env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix})
}
