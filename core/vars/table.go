// Package vars holds the shell variable table and the exported environment.
package vars

import (
	"errors"
	"fmt"
)

// Names of the variables every table carries.
const (
	Path     = "PATH"
	Prompt   = "PROMPT"
	Shell    = "SHELL"
	User     = "USER"
	Home     = "HOME"
	CWD      = "CWD"
	Terminal = "TERMINAL"
)

// Fixed lists the fixed variables in display order.
var Fixed = []string{Path, Prompt, Shell, User, Home, CWD, Terminal}

// ErrInvalidName is returned when setting a variable whose name isn't an
// identifier.
var ErrInvalidName = errors.New("invalid variable name")

// Table maps shell variable names to values. The fixed variables are always
// present; other names are found only once set.
//
// A Table is owned by a single goroutine, use Clone to hand a copy to another.
type Table struct {
	values map[string]string
	// order holds user defined names in insertion order.
	order []string
}

// NewTable creates a table with every fixed variable present, taking initial
// values from init.
func NewTable(init map[string]string) *Table {
	t := &Table{values: make(map[string]string)}
	for _, k := range Fixed {
		t.values[k] = init[k]
	}
	return t
}

// IsFixed reports whether key is one of the fixed variables.
func IsFixed(key string) bool {
	for _, k := range Fixed {
		if k == key {
			return true
		}
	}
	return false
}

// ValidName reports whether name can be used as a variable name.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !IsNameByte(name[i]) || (i == 0 && name[i] >= '0' && name[i] <= '9') {
			return false
		}
	}
	return true
}

// IsNameByte reports whether c may appear in a variable name.
func IsNameByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// Lookup returns the value of key and whether it is set.
func (t *Table) Lookup(key string) (string, bool) {
	val, ok := t.values[key]
	return val, ok
}

// Get returns the value of key or the empty string.
func (t *Table) Get(key string) string {
	val, _ := t.Lookup(key)
	return val
}

// Set creates or updates a variable.
func (t *Table) Set(key, value string) error {
	if !ValidName(key) {
		return fmt.Errorf("%q: %w", key, ErrInvalidName)
	}
	if _, ok := t.values[key]; !ok {
		t.order = append(t.order, key)
	}
	t.values[key] = value
	return nil
}

// Keys returns the fixed names followed by user names in insertion order.
func (t *Table) Keys() []string {
	out := make([]string, 0, len(Fixed)+len(t.order))
	out = append(out, Fixed...)
	return append(out, t.order...)
}

// Environ returns the variables as KEY=value pairs in Keys order.
func (t *Table) Environ() []string {
	var out []string
	for _, k := range t.Keys() {
		out = append(out, fmt.Sprintf("%s=%s", k, t.values[k]))
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		values: make(map[string]string, len(t.values)),
		order:  append([]string(nil), t.order...),
	}
	for k, v := range t.values {
		out.values[k] = v
	}
	return out
}
