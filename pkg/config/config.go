// Package config provides environment overrides on top of file-based service configuration.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvSource resolves keys against prefixed environment variables.
// A key like "expiry_minutes" with prefix "QR_PAYMENT" reads QR_PAYMENT_EXPIRY_MINUTES.
type EnvSource struct {
	v *viper.Viper
}

// NewEnvSource creates a source for the given prefix. Dots in keys map to underscores.
func NewEnvSource(prefix string) *EnvSource {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(prefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &EnvSource{v: v}
}

// Bind maps key to explicit environment variable names instead of the prefixed default.
func (s *EnvSource) Bind(key string, envs ...string) *EnvSource {
	_ = s.v.BindEnv(append([]string{key}, envs...)...)
	return s
}

// IsSet reports whether the variable for key is present.
func (s *EnvSource) IsSet(key string) bool {
	return s.v.IsSet(key)
}

// String overrides *dst when key is set.
func (s *EnvSource) String(key string, dst *string) {
	if s.v.IsSet(key) {
		*dst = s.v.GetString(key)
	}
}

// Int overrides *dst when key is set.
func (s *EnvSource) Int(key string, dst *int) {
	if s.v.IsSet(key) {
		*dst = s.v.GetInt(key)
	}
}

// Int64 overrides *dst when key is set.
func (s *EnvSource) Int64(key string, dst *int64) {
	if s.v.IsSet(key) {
		*dst = s.v.GetInt64(key)
	}
}

// Bool overrides *dst when key is set.
func (s *EnvSource) Bool(key string, dst *bool) {
	if s.v.IsSet(key) {
		*dst = s.v.GetBool(key)
	}
}

// Duration overrides *dst when key is set. Values use time.ParseDuration syntax.
func (s *EnvSource) Duration(key string, dst *time.Duration) {
	if s.v.IsSet(key) {
		*dst = s.v.GetDuration(key)
	}
}

// StringSlice overrides *dst with a comma separated list when key is set.
func (s *EnvSource) StringSlice(key string, dst *[]string) {
	if !s.v.IsSet(key) {
		return
	}
	raw := s.v.GetString(key)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
