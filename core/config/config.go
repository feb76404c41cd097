package config

import (
	_ "embed"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

type Configuration struct {
	configFs  afero.Fs
	configDir string

	Prompt   string `json:"prompt" validate:"required"`
	Banner   string `json:"banner"`
	Farewell string `json:"farewell"`

	ExitKeywords        []string `json:"exit_keywords" validate:"required,min=1,dive,required"`
	FallbackInterpreter string   `json:"fallback_interpreter" validate:"required"`

	HistoryFile  string `json:"history_file"`
	HistoryLimit int    `json:"history_limit" validate:"gte=0"`

	RCFile   string `json:"rc_file"`
	EventLog string `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewMemMapFs()
	}
	return c.configFs
}

// IsExitKeyword reports whether word ends the session.
func (c *Configuration) IsExitKeyword(word string) bool {
	for _, kw := range c.ExitKeywords {
		if kw == word {
			return true
		}
	}
	return false
}

// HistoryPath returns the on-disk path of the readline history or the empty
// string if history shouldn't be persisted.
func (c *Configuration) HistoryPath() string {
	if c.HistoryFile == "" || c.configDir == "" {
		return ""
	}
	return filepath.Join(c.configDir, c.HistoryFile)
}

// OpenEventLog opens the event log in an append only state. If no event log
// is configured, output is discarded.
func (c *Configuration) OpenEventLog() (io.WriteCloser, error) {
	if c.EventLog == "" {
		return nopWriteCloser{io.Discard}, nil
	}
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

// ReadRC returns the variables set in the rc file. A missing file has no
// variables.
func (c *Configuration) ReadRC() (map[string]string, error) {
	if c.RCFile == "" {
		return nil, nil
	}

	fd, err := c.fs().Open(c.RCFile)
	switch {
	case os.IsNotExist(err):
		return nil, nil
	case err != nil:
		return nil, err
	}
	defer fd.Close()

	return godotenv.Parse(fd)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error {
	return nil
}

// Default returns the built-in configuration backed by an in-memory
// filesystem.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	out.configFs = afero.NewMemMapFs()
	return &out
}
