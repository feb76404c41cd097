package logger

// LogEntry is a single recorded event. Exactly one of the event fields is set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	RunCommand        *RunCommand        `json:"run_command,omitempty"`
	UnknownCommand    *UnknownCommand    `json:"unknown_command,omitempty"`
	InvalidInvocation *InvalidInvocation `json:"invalid_invocation,omitempty"`
	Interrupt         *Interrupt         `json:"interrupt,omitempty"`
	BackgroundJob     *BackgroundJob     `json:"background_job,omitempty"`
}

// LogType is implemented by every event that can be stored in a LogEntry.
type LogType interface {
	setOn(le *LogEntry)
}

// GetLogType returns the event held by the entry or nil.
func (le *LogEntry) GetLogType() LogType {
	switch {
	case le.RunCommand != nil:
		return le.RunCommand
	case le.UnknownCommand != nil:
		return le.UnknownCommand
	case le.InvalidInvocation != nil:
		return le.InvalidInvocation
	case le.Interrupt != nil:
		return le.Interrupt
	case le.BackgroundJob != nil:
		return le.BackgroundJob
	default:
		return nil
	}
}

// RunCommand is logged when a stage runs a builtin or program.
type RunCommand struct {
	Command []string `json:"command"`
	// Kind is the builtin category, "program" for external programs.
	Kind                string `json:"kind"`
	ResolvedCommandPath string `json:"resolved_command_path,omitempty"`
	ExitStatus          int    `json:"exit_status"`
}

func (e *RunCommand) setOn(le *LogEntry) { le.RunCommand = e }

// UnknownCommand is logged when a program can't be found.
type UnknownCommand struct {
	Command []string `json:"command"`
}

func (e *UnknownCommand) setOn(le *LogEntry) { le.UnknownCommand = e }

// InvalidInvocation is logged when a line or builtin can't be run.
type InvalidInvocation struct {
	Command []string `json:"command"`
	Error   string   `json:"error"`
}

func (e *InvalidInvocation) setOn(le *LogEntry) { le.InvalidInvocation = e }

// Interrupt is logged when the shell receives SIGINT while running a line.
type Interrupt struct {
	Line string `json:"line"`
}

func (e *Interrupt) setOn(le *LogEntry) { le.Interrupt = e }

// BackgroundJob is logged when a background job starts or finishes.
type BackgroundJob struct {
	ID       int    `json:"id"`
	Line     string `json:"line"`
	Finished bool   `json:"finished"`
	Error    string `json:"error,omitempty"`
}

func (e *BackgroundJob) setOn(le *LogEntry) { le.BackgroundJob = e }
