// Package config loads struct configuration from environment variables and .env files.
//
// Every package in this module exposes a Config struct tagged for this loader and a
// GetConfig function that applies the package's default prefix:
//
//	type Config struct {
//	    ClientID    string        `env:"CLIENT_ID,required"`
//	    CallbackURL string        `env:"CALLBACK_URL,required"`
//	    Timeout     time.Duration `env:"HTTP_TIMEOUT,default:10s"`
//	    UserScopes  []string      `env:"USER_SCOPES,default:identity.basic"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "BEAVER_SLACK_OAUTH_"})
//
// # Environment Files
//
// A .env file in the working directory is loaded automatically when present. Pass
// LoadOptions.Files to load specific files instead; missing files are then an error.
// Variables already set in the process environment are never overwritten.
//
// # Debug Mode
//
// Set BEAVER_CONFIG_DEBUG=true or LoadOptions.Debug to print each resolved variable.
package config
