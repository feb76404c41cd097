package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       Tally `json:"sessions"`
	InvalidEntries Tally `json:"unknown_log_entries,omitempty"`

	RunCommand        RunCommandReport        `json:"run_command_report"`
	UnknownCommand    UnknownCommandReport    `json:"unknown_command_report"`
	InvalidInvocation InvalidInvocationReport `json:"invalid_invocation_report"`
	Interrupts        int                     `json:"interrupts"`
	BackgroundJobs    int                     `json:"background_jobs"`
}

// Update adds the entry to the report.
func (r *Report) Update(le *LogEntry) {
	r.LogEntries++
	if le.SessionID != "" {
		r.Sessions.Add(le.SessionID)
	}

	switch event := le.GetLogType().(type) {
	case *RunCommand:
		r.RunCommand.update(event)
	case *UnknownCommand:
		r.UnknownCommand.update(event)
	case *InvalidInvocation:
		r.InvalidInvocation.update(event)
	case *Interrupt:
		r.Interrupts++
	case *BackgroundJob:
		if !event.Finished {
			r.BackgroundJobs++
		}
	default:
		r.InvalidEntries.Add(fmt.Sprintf("%T", event))
	}
}

type RunCommandReport struct {
	// Name of the resolved command
	ResolvedCommandPaths Tally `json:"resolved_command_paths"`
	// Name of the command
	CommandNames Tally `json:"command_names"`
	// Builtin category or program
	Kinds Tally `json:"kinds"`
	// Number of commands exiting non-zero
	Failures int `json:"failures"`
}

func (r *RunCommandReport) update(rc *RunCommand) {
	if rc.ResolvedCommandPath != "" {
		r.ResolvedCommandPaths.Add(rc.ResolvedCommandPath)
	}
	if len(rc.Command) > 0 {
		r.CommandNames.Add(rc.Command[0])
	}
	r.Kinds.Add(rc.Kind)
	if rc.ExitStatus != 0 {
		r.Failures++
	}
}

type UnknownCommandReport struct {
	CommandNames Tally `json:"command_names"`
}

func (r *UnknownCommandReport) update(logEntry *UnknownCommand) {
	if len(logEntry.Command) > 0 {
		r.CommandNames.Add(logEntry.Command[0])
	}
}

type InvalidInvocationReport struct {
	Errors *TupleCounter `json:"errors"`
}

func (r *InvalidInvocationReport) update(logEntry *InvalidInvocation) {
	if r.Errors == nil {
		r.Errors = NewTupleCounter("command", "error")
	}
	command := ""
	if len(logEntry.Command) > 0 {
		command = logEntry.Command[0]
	}
	r.Errors.Add(command, logEntry.Error)
}

// Tally counts how often each string is seen. The zero value is ready to
// use.
type Tally struct {
	seen map[string]int
}

// Add counts one more occurrence of key.
func (t *Tally) Add(key string) {
	if t.seen == nil {
		t.seen = map[string]int{}
	}
	t.seen[key]++
}

// Count returns the number of times key was added.
func (t *Tally) Count(key string) int {
	return t.seen[key]
}

// Len returns the number of distinct keys.
func (t *Tally) Len() int {
	return len(t.seen)
}

// MarshalJSON encodes the tally as an object of counts.
func (t Tally) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.seen)
}

// TupleCounter counts distinct tuples of named fields, for example the
// command and error of a rejected line.
type TupleCounter struct {
	fields []string
	rows   map[string]*tupleRow
}

type tupleRow struct {
	key    string
	values []string
	count  int
}

// NewTupleCounter creates a counter for tuples with the given field names.
func NewTupleCounter(fields ...string) *TupleCounter {
	return &TupleCounter{fields: fields, rows: map[string]*tupleRow{}}
}

// Add counts one more occurrence of the tuple. It panics if the number of
// values doesn't match the number of fields.
func (c *TupleCounter) Add(values ...string) {
	if len(values) != len(c.fields) {
		panic(fmt.Sprintf("logger: tuple has %d values, want %d", len(values), len(c.fields)))
	}

	// Fields are joined with NUL, which can't appear in a command line.
	key := strings.Join(values, "\x00")
	row, ok := c.rows[key]
	if !ok {
		row = &tupleRow{key: key, values: append([]string(nil), values...)}
		c.rows[key] = row
	}
	row.count++
}

// MarshalJSON encodes the tuples most frequent first, ties ordered by value.
func (c *TupleCounter) MarshalJSON() ([]byte, error) {
	rows := make([]*tupleRow, 0, len(c.rows))
	for _, row := range c.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})

	type entry struct {
		Count int               `json:"count"`
		Event map[string]string `json:"event"`
	}
	out := make([]entry, 0, len(rows))
	for _, row := range rows {
		event := make(map[string]string, len(c.fields))
		for i, name := range c.fields {
			event[name] = row.values[i]
		}
		out = append(out, entry{Count: row.count, Event: event})
	}
	return json.Marshal(out)
}
