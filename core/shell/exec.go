package shell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/vars"
	"golang.org/x/sys/unix"
)

// execContext holds the state a pipeline runs against.
type execContext struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// env is the environment given to programs.
	env []string

	// vars and dirs are the live shell state for foreground pipelines and
	// copies for background jobs.
	vars *vars.Table
	dirs *DirStack

	// background pipelines skip builtins that change shell state.
	background bool
}

// runPipeline runs the stages in order, each one is waited for before the
// next starts. It returns the exit status of the last stage that ran.
func (s *Shell) runPipeline(ec execContext, pl *Pipeline) (int, error) {
	status := 0
	stdin := ec.stdin
	for _, stage := range pl.Stages {
		if s.interruptedDuring(ec) {
			return status, ErrInterrupted
		}

		var err error
		status, stdin, err = s.runStage(ec, stage, stdin)
		if err != nil {
			return status, err
		}
	}

	if s.interruptedDuring(ec) {
		return status, ErrInterrupted
	}
	return status, nil
}

func (s *Shell) interruptedDuring(ec execContext) bool {
	return !ec.background && s.interrupted.IsSet()
}

// runStage wires up the stage's standard streams, runs it and returns the
// output to feed the next stage.
func (s *Shell) runStage(ec execContext, stage *Stage, stdin io.Reader) (int, io.Reader, error) {
	ec.stdin = stdin

	var out *pipe
	if !stage.Last {
		var err error
		if out, err = openPipe(); err != nil {
			return 1, nil, err
		}
		defer out.Close()
		ec.stdout = out.w
	}

	if redirect := stage.Redirect; redirect != nil {
		// Background jobs resolve relative paths against their own copy of
		// the working directory.
		if ec.background && !filepath.IsAbs(redirect.Path) {
			redirect = &Redirect{Path: filepath.Join(ec.vars.Get(vars.CWD), redirect.Path), Append: redirect.Append}
		}

		fd, err := redirect.Open(s.Fs)
		if err != nil {
			return 1, nil, err
		}
		defer fd.Close()
		ec.stdout = fd
	}

	status, err := s.dispatch(ec, stage.Args)
	if err != nil {
		return status, nil, err
	}

	if out == nil {
		return status, nil, nil
	}

	data, err := out.Output()
	if err != nil {
		return status, nil, &SpawnError{Op: "pipe", Err: err}
	}
	return status, bytes.NewReader(data), nil
}

// dispatch runs a single command as a builtin or program.
func (s *Shell) dispatch(ec execContext, args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}

	builtin := LookupBuiltin(args[0])
	switch builtin.Kind {
	case ParentOnly:
		if ec.background {
			return 0, nil
		}
		fallthrough
	case Display:
		status := builtin.Main(s, ec, args)
		s.record(&logger.RunCommand{Command: args, Kind: builtin.Kind.String(), ExitStatus: status})
		return status, nil
	case Special:
		rewritten, status := builtin.Rewrite(s, ec, args)
		if rewritten == nil {
			s.record(&logger.RunCommand{Command: args, Kind: builtin.Kind.String(), ExitStatus: status})
			return status, nil
		}
		args = rewritten
	}

	return s.execProgram(ec, args)
}

// execProgram starts a program and waits for it to exit.
func (s *Shell) execProgram(ec execContext, args []string) (int, error) {
	env := vars.NewMapEnvFromEnvList(ec.env)
	searchPath, ok := env.LookupEnv("PATH")
	if !ok {
		searchPath = ec.vars.Get(vars.Path)
	}

	name := args[0]
	if ec.background && strings.Contains(name, "/") && !filepath.IsAbs(name) {
		name = filepath.Join(ec.vars.Get(vars.CWD), name)
	}

	path, err := lookPath(name, searchPath)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			fmt.Fprintf(ec.stderr, "%s: %s: permission denied\n", ProgramName, args[0])
			s.record(&logger.UnknownCommand{Command: args})
			return 126, nil
		}
		fmt.Fprintf(ec.stderr, "%s: %v\n", ProgramName, err)
		s.record(&logger.UnknownCommand{Command: args})
		return 127, nil
	}

	cmd := ec.command(path, args)
	err = cmd.Start()
	if errors.Is(err, syscall.ENOEXEC) {
		// Executable files without a #! line are shell scripts.
		cmd = ec.command("/bin/sh", append([]string{"sh", path}, args[1:]...))
		err = cmd.Start()
	}
	if err != nil {
		return 1, &SpawnError{Op: "start " + args[0], Err: err}
	}

	status := exitStatus(cmd.Wait())
	s.record(&logger.RunCommand{Command: args, Kind: "program", ResolvedCommandPath: path, ExitStatus: status})
	return status, nil
}

func (ec execContext) command(path string, args []string) *exec.Cmd {
	cmd := &exec.Cmd{
		Path:   path,
		Args:   args,
		Env:    ec.env,
		Stdin:  ec.stdin,
		Stdout: ec.stdout,
		Stderr: ec.stderr,
	}
	if ec.background {
		cmd.Dir = ec.vars.Get(vars.CWD)
	}
	return cmd
}

// lookPath searches the colon separated dirs in pathList for an executable
// named file. Names containing a slash aren't searched for.
func lookPath(file, pathList string) (string, error) {
	if strings.Contains(file, "/") {
		if err := findExecutable(file); err != nil {
			return "", &ExecError{Name: file, Err: err}
		}
		return file, nil
	}

	var lastErr error = exec.ErrNotFound
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			dir = "."
		}
		path := dir + string(filepath.Separator) + file
		err := findExecutable(path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrPermission) {
			lastErr = err
		}
	}
	return "", &ExecError{Name: file, Err: lastErr}
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if d.IsDir() {
		return fs.ErrPermission
	}
	if err := unix.Access(file, unix.X_OK); err != nil {
		return fs.ErrPermission
	}
	return nil
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}
