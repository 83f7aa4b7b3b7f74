package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPrefix is prepended to every variable name when no LoadOptions are given.
const DefaultPrefix = "BEAVER_"

var (
	// ErrRequired is returned when a field tagged `required` has no value.
	ErrRequired = errors.New("required environment variable not set")

	// ErrInvalidTarget is returned when Load is not given a pointer to a struct.
	ErrInvalidTarget = errors.New("config target must be a non-nil pointer to a struct")
)

// LoadOptions defines options for loading configuration from environment variables.
type LoadOptions struct {
	Prefix string // Prefix to prepend to environment variable names (default: "BEAVER_")
	Debug  bool   // Print every resolved variable
	// Files lists .env files to load before reading the environment. When empty,
	// ".env" in the working directory is tried and silently skipped if missing.
	Files []string
}

// Load populates a struct from .env files and environment variables using reflection.
//
// Struct fields are mapped through their `env` tag:
//   - `env:"VAR_NAME"` reads PREFIX+VAR_NAME
//   - `env:"VAR_NAME,default:value"` falls back to value when unset
//   - `env:"VAR_NAME,required"` fails with ErrRequired when unset and no default exists
//
// Values already present in the process environment win over .env file values.
//
// Example:
//
//	type Config struct {
//	    ClientID string        `env:"CLIENT_ID,required"`
//	    Timeout  time.Duration `env:"TIMEOUT,default:10s"`
//	    Scopes   []string      `env:"SCOPES,default:identity.basic"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "MYAPP_"})
//	// Will look for MYAPP_CLIENT_ID, MYAPP_TIMEOUT, MYAPP_SCOPES
func Load(cfg interface{}, opts ...LoadOptions) error {
	options := LoadOptions{Prefix: DefaultPrefix}
	if len(opts) > 0 {
		options = opts[0]
	}

	if len(options.Files) > 0 {
		if err := godotenv.Load(options.Files...); err != nil {
			return fmt.Errorf("failed to load env files: %w", err)
		}
	} else {
		// Silently try to load .env file, ignore if not found
		_ = godotenv.Load()
	}

	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	v := rv.Elem()
	t := v.Type()
	printDebug := options.Debug || os.Getenv("BEAVER_CONFIG_DEBUG") == "true"

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" || !field.IsExported() {
			continue
		}

		envName, defaultValue, required := parseTag(envTag)
		fullEnvName := options.Prefix + envName

		value, ok := os.LookupEnv(fullEnvName)
		if !ok || value == "" {
			value = defaultValue
		}
		if printDebug {
			fmt.Printf("[BEAVER] %s=%s\n", fullEnvName, value)
		}

		if value == "" {
			if required {
				return fmt.Errorf("%w: %s", ErrRequired, fullEnvName)
			}
			continue
		}

		if err := setFieldValue(v.Field(i), value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", fullEnvName, err)
		}
	}

	return nil
}

// parseTag splits an env tag into its name, default value, and required flag.
// The default value runs to the end of the tag so it may itself contain commas,
// which is how slice defaults are written: `env:"SCOPES,default:a,b,c"`.
func parseTag(tag string) (name, defaultValue string, required bool) {
	parts := strings.Split(tag, ",")
	name = parts[0]

	for i := 1; i < len(parts); i++ {
		part := parts[i]
		switch {
		case part == "required":
			required = true
		case strings.HasPrefix(part, "default:"):
			defaultValue = strings.Join(append([]string{strings.TrimPrefix(part, "default:")}, parts[i+1:]...), ",")
			return name, defaultValue, required
		}
	}

	return name, defaultValue, required
}

// setFieldValue converts a raw environment value into the field's type.
//
// Supported types: string, int kinds, uint kinds, float kinds, bool,
// time.Duration and []string (comma separated, blanks dropped). Other types are
// skipped silently.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		items := SplitList(value, ",")
		field.Set(reflect.ValueOf(items))
	default:
		return nil
	}
	return nil
}

// SplitList splits s on sep, trims whitespace and drops empty entries.
func SplitList(s, sep string) []string {
	raw := strings.Split(s, sep)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
