package vars

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Env is the environment exported to spawned programs.
type Env interface {
	LookupEnv(key string) (string, bool)
	Getenv(key string) string
	Setenv(key, value string) error
	Unsetenv(key string) error
	Environ() []string
}

// OSEnv is the real process environment.
type OSEnv struct{}

var _ Env = OSEnv{}

// LookupEnv implements Env.LookupEnv.
func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// Getenv implements Env.Getenv.
func (OSEnv) Getenv(key string) string { return os.Getenv(key) }

// Setenv implements Env.Setenv.
func (OSEnv) Setenv(key, value string) error { return os.Setenv(key, value) }

// Unsetenv implements Env.Unsetenv.
func (OSEnv) Unsetenv(key string) error { return os.Unsetenv(key) }

// Environ implements Env.Environ.
func (OSEnv) Environ() []string { return os.Environ() }

// CopyEnv copies all the environment variables in src to dst.
func CopyEnv(dst Env, src []string) error {
	for _, e := range src {
		key, value := splitEnv(e)
		if err := dst.Setenv(key, value); err != nil {
			return err
		}
	}

	return nil
}

func splitEnv(e string) (key, value string) {
	split := strings.SplitN(e, "=", 2)
	key = split[0]
	if len(split) > 1 {
		value = split[1]
	}
	return
}

// NewMapEnv creates a new environment backed by a map.
func NewMapEnv() *MapEnv {
	return &MapEnv{}
}

// NewMapEnvFromEnvList creates an environment holding a copy of the
// KEY=value entries in environ.
func NewMapEnvFromEnvList(environ []string) *MapEnv {
	out := &MapEnv{}
	// Ignore error, it will never be set for MapEnv.
	_ = CopyEnv(out, environ)
	return out
}

// MapEnv implements an in-memory Env.
type MapEnv struct {
	env map[string]string
}

var _ Env = (*MapEnv)(nil)

// Unsetenv implements Env.Unsetenv.
func (m *MapEnv) Unsetenv(key string) error {
	delete(m.env, key)
	return nil
}

// Setenv implements Env.Setenv.
func (m *MapEnv) Setenv(key, value string) error {
	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[key] = value
	return nil
}

// LookupEnv implements Env.LookupEnv.
func (m *MapEnv) LookupEnv(key string) (string, bool) {
	val, ok := m.env[key]
	return val, ok
}

// Getenv implements Env.Getenv.
func (m *MapEnv) Getenv(key string) string {
	val, _ := m.LookupEnv(key)
	return val
}

// Environ implements Env.Environ, entries are sorted by key.
func (m *MapEnv) Environ() []string {
	env := make([]string, 0, len(m.env))
	for k, v := range m.env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)
	return env
}
