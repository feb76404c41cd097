package shell

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/josephlewis42/pipesh/core/vars"
	"github.com/pborman/getopt/v2"
)

// Kind is the category of a builtin, it decides where the builtin runs.
type Kind int

const (
	// PassThrough commands are resolved as external programs.
	PassThrough Kind = iota
	// ParentOnly builtins change shell state and are skipped in background
	// jobs.
	ParentOnly
	// Display builtins only write to their standard streams.
	Display
	// Special builtins rewrite their arguments into a program invocation.
	Special
)

func (k Kind) String() string {
	switch k {
	case ParentOnly:
		return "parent"
	case Display:
		return "display"
	case Special:
		return "special"
	default:
		return "program"
	}
}

// Builtin is a command implemented by the shell.
type Builtin struct {
	Kind  Kind
	Short string

	// Main runs ParentOnly and Display builtins.
	Main func(s *Shell, ec execContext, args []string) int
	// Rewrite returns the program arguments for a Special builtin. If it
	// returns nil the command is done and status is its exit status.
	Rewrite func(s *Shell, ec execContext, args []string) (argv []string, status int)
}

// AllBuiltins holds all registered shell builtins.
var AllBuiltins = make(map[string]Builtin)

// LookupBuiltin returns the builtin named name, unknown names are
// PassThrough.
func LookupBuiltin(name string) Builtin {
	if b, ok := AllBuiltins[name]; ok {
		return b
	}
	return Builtin{Kind: PassThrough}
}

// ListBuiltins returns the sorted builtin names.
func ListBuiltins() []string {
	var out []string
	for name := range AllBuiltins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// builtinCommand parses the flags of a builtin.
type builtinCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (b *builtinCommand) Flags() *getopt.Set {
	if b.flags == nil {
		b.flags = getopt.New()
	}
	return b.flags
}

// PrintHelp writes help for the command to the given writer.
func (b *builtinCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, b.Use)
	fmt.Fprintln(w, b.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	b.Flags().PrintOptions(w)
}

// Run parses args and calls the callback with the remaining positional
// arguments.
func (b *builtinCommand) Run(ec execContext, args []string, callback func(args []string) int) int {
	opts := b.Flags()
	showHelp := opts.BoolLong("help", 'h', "show this help and exit")

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(ec.stderr, "%s: %s\n", args[0], err)
		b.PrintHelp(ec.stderr)
		return 2
	}

	if *showHelp {
		b.PrintHelp(ec.stdout)
		return 0
	}

	return callback(opts.Args())
}

func usageError(ec execContext, name, use string) int {
	fmt.Fprintf(ec.stderr, "%s: usage: %s\n", name, use)
	return 1
}

// Cd changes the working directory.
func Cd(s *Shell, ec execContext, args []string) int {
	const use = "cd [dir]"
	cmd := &builtinCommand{Use: use, Short: AllBuiltins["cd"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		home := s.Vars.Get(vars.Home)
		var dir string
		switch len(args) {
		case 0:
			dir = home
		case 1:
			dir = expandHome(args[0], home)
		default:
			return usageError(ec, "cd", use)
		}

		if err := s.chdir(dir); err != nil {
			fmt.Fprintf(ec.stderr, "cd: %v\n", err)
			return 1
		}
		s.Dirs.ReplaceTop(s.Vars.Get(vars.CWD))
		return 0
	})
}

func expandHome(dir, home string) string {
	switch {
	case dir == "~" || dir == "~/":
		return home
	case strings.HasPrefix(dir, "~/"):
		return filepath.Join(home, dir[2:])
	default:
		return dir
	}
}

// Pushd changes the working directory and pushes it on the directory stack.
func Pushd(s *Shell, ec execContext, args []string) int {
	const use = "pushd <dir>"
	cmd := &builtinCommand{Use: use, Short: AllBuiltins["pushd"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		if len(args) != 1 || args[0] == "" {
			return usageError(ec, "pushd", use)
		}

		if err := s.chdir(expandHome(args[0], s.Vars.Get(vars.Home))); err != nil {
			fmt.Fprintf(ec.stderr, "pushd: %v\n", err)
			return 1
		}
		s.Dirs.Push(s.Vars.Get(vars.CWD))
		return 0
	})
}

// Popd removes the top of the directory stack and changes to the new top.
func Popd(s *Shell, ec execContext, args []string) int {
	const use = "popd"
	cmd := &builtinCommand{Use: use, Short: AllBuiltins["popd"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		if len(args) != 0 {
			return usageError(ec, "popd", use)
		}

		if s.Dirs.Len() <= 1 {
			fmt.Fprintln(ec.stderr, "popd: directory stack empty")
			return 1
		}
		// The stack is only changed once the directory change succeeds.
		if err := s.chdir(s.Dirs.Paths()[1]); err != nil {
			fmt.Fprintf(ec.stderr, "popd: %v\n", err)
			return 1
		}
		s.Dirs.Pop()
		return 0
	})
}

// Dirs prints the directory stack, top first.
func Dirs(s *Shell, ec execContext, args []string) int {
	cmd := &builtinCommand{Use: "dirs", Short: AllBuiltins["dirs"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		fmt.Fprintln(ec.stdout, strings.Join(ec.dirs.Paths(), " "))
		return 0
	})
}

// Export copies a shell variable into the environment.
func Export(s *Shell, ec execContext, args []string) int {
	const use = "export <name>"
	cmd := &builtinCommand{Use: use, Short: AllBuiltins["export"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		if len(args) != 1 {
			return usageError(ec, "export", use)
		}

		value, ok := s.Vars.Lookup(args[0])
		if !ok {
			fmt.Fprintf(ec.stderr, "export: %v\n", &LookupError{Kind: "variable", Name: args[0]})
			return 1
		}
		if err := s.Env.Setenv(args[0], value); err != nil {
			fmt.Fprintf(ec.stderr, "export: %v\n", err)
			return 1
		}
		return 0
	})
}

// Unset removes a variable from the environment.
func Unset(s *Shell, ec execContext, args []string) int {
	const use = "unset <name>"
	cmd := &builtinCommand{Use: use, Short: AllBuiltins["unset"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		if len(args) != 1 {
			return usageError(ec, "unset", use)
		}

		if err := s.Env.Unsetenv(args[0]); err != nil {
			fmt.Fprintf(ec.stderr, "unset: %v\n", err)
			return 1
		}
		return 0
	})
}

// Showvar prints shell variables.
func Showvar(s *Shell, ec execContext, args []string) int {
	const use = "showvar [name]"
	cmd := &builtinCommand{Use: use, Short: AllBuiltins["showvar"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		switch len(args) {
		case 0:
			for _, kv := range ec.vars.Environ() {
				fmt.Fprintln(ec.stdout, kv)
			}
			return 0
		case 1:
			value, ok := ec.vars.Lookup(args[0])
			if !ok {
				fmt.Fprintf(ec.stderr, "showvar: %v\n", &LookupError{Kind: "variable", Name: args[0]})
				return 1
			}
			fmt.Fprintf(ec.stdout, "%s=%s\n", args[0], value)
			return 0
		default:
			return usageError(ec, "showvar", use)
		}
	})
}

// Showenv prints environment variables.
func Showenv(s *Shell, ec execContext, args []string) int {
	const use = "showenv [name]"
	cmd := &builtinCommand{Use: use, Short: AllBuiltins["showenv"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		env := vars.NewMapEnvFromEnvList(ec.env)
		switch len(args) {
		case 0:
			for _, kv := range env.Environ() {
				fmt.Fprintln(ec.stdout, kv)
			}
			return 0
		case 1:
			value, ok := env.LookupEnv(args[0])
			if !ok {
				fmt.Fprintf(ec.stderr, "showenv: %v\n", &LookupError{Kind: "environment variable", Name: args[0]})
				return 1
			}
			fmt.Fprintf(ec.stdout, "%s=%s\n", args[0], value)
			return 0
		default:
			return usageError(ec, "showenv", use)
		}
	})
}

// Pwd prints the working directory.
func Pwd(s *Shell, ec execContext, args []string) int {
	cmd := &builtinCommand{Use: "pwd", Short: AllBuiltins["pwd"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		fmt.Fprintln(ec.stdout, ec.vars.Get(vars.CWD))
		return 0
	})
}

// Whoami prints the user name.
func Whoami(s *Shell, ec execContext, args []string) int {
	cmd := &builtinCommand{Use: "whoami", Short: AllBuiltins["whoami"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		fmt.Fprintln(ec.stdout, ec.vars.Get(vars.User))
		return 0
	})
}

// Help lists the builtins.
func Help(s *Shell, ec execContext, args []string) int {
	cmd := &builtinCommand{Use: "help", Short: AllBuiltins["help"].Short}

	return cmd.Run(ec, args, func(args []string) int {
		w := ec.stdout
		fmt.Fprintf(w, "%s builtin commands:\n", ProgramName)
		fmt.Fprintln(w)
		for _, name := range ListBuiltins() {
			b := AllBuiltins[name]
			fmt.Fprintf(w, "  %-8s %-8s %s\n", name, b.Kind, b.Short)
		}
		return 0
	})
}

// Source runs a file with the fallback interpreter.
func Source(s *Shell, ec execContext, args []string) ([]string, int) {
	if len(args) < 2 {
		fmt.Fprintln(ec.stdout, "Usage: source <filename>")
		return nil, 1
	}
	return append([]string{s.Config.FallbackInterpreter}, args[1:]...), 0
}

func init() {
	AllBuiltins["cd"] = Builtin{Kind: ParentOnly, Short: "Change the shell working directory.", Main: Cd}
	AllBuiltins["pushd"] = Builtin{Kind: ParentOnly, Short: "Change directory and push it on the stack.", Main: Pushd}
	AllBuiltins["popd"] = Builtin{Kind: ParentOnly, Short: "Pop the directory stack.", Main: Popd}
	AllBuiltins["export"] = Builtin{Kind: ParentOnly, Short: "Copy a shell variable to the environment.", Main: Export}
	AllBuiltins["unset"] = Builtin{Kind: ParentOnly, Short: "Remove a variable from the environment.", Main: Unset}
	AllBuiltins["showvar"] = Builtin{Kind: Display, Short: "Print shell variables.", Main: Showvar}
	AllBuiltins["showenv"] = Builtin{Kind: Display, Short: "Print environment variables.", Main: Showenv}
	AllBuiltins["dirs"] = Builtin{Kind: Display, Short: "Print the directory stack.", Main: Dirs}
	AllBuiltins["pwd"] = Builtin{Kind: Display, Short: "Print the working directory.", Main: Pwd}
	AllBuiltins["whoami"] = Builtin{Kind: Display, Short: "Print the user name.", Main: Whoami}
	AllBuiltins["help"] = Builtin{Kind: Display, Short: "List the builtin commands.", Main: Help}
	AllBuiltins["source"] = Builtin{Kind: Special, Short: "Run a file with the fallback interpreter.", Rewrite: Source}
}
