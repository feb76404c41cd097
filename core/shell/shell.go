package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"os/user"
	"sort"
	"strings"
	"sync"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/vars"
	"github.com/spf13/afero"
	"github.com/tevino/abool/v2"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ProgramName prefixes the messages the shell prints.
const ProgramName = "pipesh"

// Shell holds the state of an interactive session.
type Shell struct {
	Vars   *vars.Table
	Env    vars.Env
	Dirs   *DirStack
	Fs     afero.Fs
	Config *config.Configuration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Quit is set once an exit keyword is read.
	Quit bool

	log         *logger.SessionLogger
	jobs        jobTable
	interrupted *abool.AtomicBool
	stopSignals func()
	lastStatus  int
}

// New creates a shell for the current process. Variables from the
// configured rc file are loaded into the variable table.
func New(cfg *config.Configuration, events *logger.Logger) (*Shell, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}

	shellPath, err := os.Executable()
	if err != nil {
		shellPath = ProgramName
	}

	s := &Shell{
		Vars: vars.NewTable(map[string]string{
			vars.Path:     os.Getenv("PATH"),
			vars.Shell:    shellPath,
			vars.User:     currentUser(),
			vars.Home:     home,
			vars.CWD:      cwd,
			vars.Terminal: terminalName(),
		}),
		Env:    vars.OSEnv{},
		Dirs:   NewDirStack(cwd),
		Fs:     afero.NewOsFs(),
		Config: cfg,

		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,

		log:         events.NewSession(),
		interrupted: abool.New(),
	}
	s.stopSignals = s.watchInterrupts()

	rc, err := cfg.ReadRC()
	if err != nil {
		s.stopSignals()
		return nil, fmt.Errorf("couldn't read %s: %w", cfg.RCFile, err)
	}
	if err := s.loadVars(rc); err != nil {
		s.stopSignals()
		return nil, fmt.Errorf("couldn't load %s: %w", cfg.RCFile, err)
	}

	s.updatePrompt()
	return s, nil
}

func (s *Shell) loadVars(values map[string]string) error {
	var keys []string
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := s.Vars.Set(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

func currentUser() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if name := os.Getenv(key); name != "" {
			return name
		}
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func terminalName() string {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ""
	}
	if name, err := os.Readlink("/proc/self/fd/0"); err == nil {
		return name
	}
	return "/dev/tty"
}

// watchInterrupts keeps SIGINT from killing the shell. Children in the
// foreground process group still receive it.
func (s *Shell) watchInterrupts() func() {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, unix.SIGINT)

	go func() {
		for {
			select {
			case <-sigs:
				s.interrupted.Set()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
		})
	}
}

// Prompt returns the current prompt.
func (s *Shell) Prompt() string {
	return s.Vars.Get(vars.Prompt)
}

func (s *Shell) updatePrompt() {
	// PROMPT is a fixed key, Set can't fail.
	_ = s.Vars.Set(vars.Prompt, renderPrompt(s.Config.Prompt, s.Vars))
}

// chdir changes the working directory and updates CWD and PROMPT.
func (s *Shell) chdir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	_ = s.Vars.Set(vars.CWD, wd)
	s.updatePrompt()
	return nil
}

// LastStatus returns the exit status of the most recent foreground line.
func (s *Shell) LastStatus() int {
	return s.lastStatus
}

func (s *Shell) record(event logger.LogType) {
	if err := s.log.Record(event); err != nil {
		log.Printf("couldn't record event: %v", err)
	}
}

func (s *Shell) foreground() execContext {
	return execContext{
		stdin:  s.Stdin,
		stdout: s.Stdout,
		stderr: s.Stderr,
		env:    s.Env.Environ(),
		vars:   s.Vars,
		dirs:   s.Dirs,
	}
}

// RunLine runs one line of input. Errors are printed and recorded before
// being returned; none of them end the session.
func (s *Shell) RunLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if s.Config.IsExitKeyword(fields[0]) {
		s.Quit = true
		s.lastStatus = 0
		return nil
	}

	err := s.runLine(line)

	var parseErr *ParseError
	switch {
	case err == nil:
	case errors.Is(err, ErrInterrupted):
		s.lastStatus = 130
		fmt.Fprintln(s.Stdout)
		s.record(&logger.Interrupt{Line: line})
	case errors.As(err, &parseErr):
		s.lastStatus = 2
		s.reportError(line, err)
	default:
		s.lastStatus = 1
		s.reportError(line, err)
	}
	return err
}

func (s *Shell) reportError(line string, err error) {
	fmt.Fprintf(s.Stderr, "%s: %v\n", ProgramName, err)
	s.record(&logger.InvalidInvocation{Command: []string{line}, Error: err.Error()})
}

func (s *Shell) runLine(line string) error {
	s.interrupted.UnSet()

	// Empty stages are checked before expansion, a stage that only assigns
	// is still a stage.
	if _, err := Segment(line); err != nil {
		return err
	}

	sc := &Scanner{Vars: s.Vars, Env: s.Env}
	expanded, assigned, err := sc.scan(line)
	if err != nil {
		return err
	}

	pl, err := ParsePipeline(expanded)
	if err != nil {
		return err
	}
	if err := sc.commit(assigned); err != nil {
		return err
	}

	if pl.Background {
		s.startJob(pl)
		s.lastStatus = 0
		return nil
	}

	status, err := s.runPipeline(s.foreground(), pl)
	s.lastStatus = status
	return err
}

// startJob runs the pipeline on its own goroutine against a copy of the
// shell's state.
func (s *Shell) startJob(pl *Pipeline) {
	ec := execContext{
		stdout:     s.Stdout,
		stderr:     s.Stderr,
		env:        s.Env.Environ(),
		vars:       s.Vars.Clone(),
		dirs:       s.Dirs.Clone(),
		background: true,
	}

	id := s.jobs.start(pl.Line, func() (int, error) {
		return s.runPipeline(ec, pl)
	})
	fmt.Fprintf(s.Stdout, "[%d] started\n", id)
	s.record(&logger.BackgroundJob{ID: id, Line: pl.Line})
}

// ReportJobs prints a line for every background job that finished since the
// last call.
func (s *Shell) ReportJobs() {
	for _, j := range s.jobs.report(s.Stdout) {
		event := &logger.BackgroundJob{ID: j.id, Line: j.line, Finished: true}
		if j.err != nil {
			event.Error = j.err.Error()
		}
		s.record(event)
	}
}

// RunInteractive reads lines with line editing and history until an exit
// keyword or end of input.
func (s *Shell) RunInteractive() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.Prompt(),
		HistoryFile:     s.Config.HistoryPath(),
		HistoryLimit:    s.Config.HistoryLimit,
		InterruptPrompt: "^C",
		EOFPrompt:       s.Config.ExitKeywords[0],
		Stdout:          s.Stdout,
		Stderr:          s.Stderr,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	if s.Config.Banner != "" {
		fmt.Fprintln(s.Stdout, bannerColor(s.Config.Banner))
	}

	for !s.Quit {
		s.ReportJobs()
		rl.SetPrompt(s.Prompt())

		line, err := rl.Readline()
		switch {
		case err == readline.ErrInterrupt:
			continue
		case err == io.EOF:
			s.Quit = true
			continue
		case err != nil:
			return err
		}

		_ = s.RunLine(line)
	}

	if s.Config.Farewell != "" {
		fmt.Fprintln(s.Stdout, bannerColor(s.Config.Farewell))
	}
	return nil
}

// RunScript runs each line read from r until an exit keyword or end of
// input.
func (s *Shell) RunScript(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for !s.Quit && scanner.Scan() {
		s.ReportJobs()
		_ = s.RunLine(scanner.Text())
	}
	return scanner.Err()
}

// Close waits for background jobs and stops handling signals. It's safe to
// call more than once.
func (s *Shell) Close() error {
	s.jobs.wait()
	s.ReportJobs()
	s.stopSignals()
	return nil
}
