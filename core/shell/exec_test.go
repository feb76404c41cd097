package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/pipesh/core/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_program(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "echo hello world")

	assert.Equal(t, "hello world\n", out)
	assert.Equal(t, 0, ts.LastStatus())
	assert.Contains(t, ts.events.String(), `"run_command"`)
}

func TestExec_exitStatus(t *testing.T) {
	ts := newTestShell(t)

	ts.run(t, "sh -c 'exit 3'")
	assert.Equal(t, 3, ts.LastStatus())

	ts.run(t, "true")
	assert.Equal(t, 0, ts.LastStatus())
}

func TestExec_pipeline(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "printf 'b\\na\\nc\\n' | sort | tr a-z A-Z")

	assert.Equal(t, "A\nB\nC\n", out)
}

func TestExec_largePipeline(t *testing.T) {
	ts := newTestShell(t)

	// Larger than any OS pipe buffer.
	data := strings.Repeat("0123456789abcdef", 200*1024/16)
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "big.txt"), []byte(data), 0644))

	ts.run(t, "cat big.txt | cat | cat > copy.txt")

	assert.Equal(t, data, ts.readFile(t, "copy.txt"))
}

func TestExec_builtinInPipeline(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "whoami | tr a-z A-Z")

	assert.Equal(t, "TESTER\n", out)
}

func TestExec_emptyStage(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "x=2", "> created.txt | cat")

	assert.Empty(t, out)
	assert.Equal(t, "2", ts.Vars.Get("x"))
	assert.Equal(t, "", ts.readFile(t, "created.txt"))
}

func TestExec_assignmentStage(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "echo hi | y=2")

	assert.Equal(t, 0, ts.LastStatus())
	assert.Empty(t, ts.stderr.String())
	assert.Equal(t, "hi\n", out)
	assert.Equal(t, "2", ts.Vars.Get("y"))

	out = ts.run(t, "x=1 | cat")
	assert.Empty(t, out)
	assert.Equal(t, "1", ts.Vars.Get("x"))
}

func TestExec_rejectedLineAssignsNothing(t *testing.T) {
	ts := newTestShell(t)

	for _, line := range []string{`y=3 echo "unterminated`, "y=3 | | cat", "y=3 echo > "} {
		t.Run(line, func(t *testing.T) {
			ts.run(t, line)

			assert.Equal(t, 2, ts.LastStatus())
			_, ok := ts.Vars.Lookup("y")
			assert.False(t, ok)
		})
	}
}

func TestExec_redirect(t *testing.T) {
	ts := newTestShell(t)

	ts.run(t, "echo one > out.txt")
	assert.Equal(t, "one\n", ts.readFile(t, "out.txt"))

	ts.run(t, "echo two > out.txt")
	assert.Equal(t, "two\n", ts.readFile(t, "out.txt"))

	ts.run(t, "echo three >> out.txt")
	assert.Equal(t, "two\nthree\n", ts.readFile(t, "out.txt"))

	assert.Empty(t, ts.stdout.String())
}

func TestExec_redirectEmptyCommand(t *testing.T) {
	ts := newTestShell(t)
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "empty.txt"), []byte("contents"), 0644))

	ts.run(t, "> empty.txt")

	assert.Equal(t, "", ts.readFile(t, "empty.txt"))
}

func TestExec_redirectOverridesPipe(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "echo hidden > side.txt | wc -c")

	assert.Equal(t, "0", strings.TrimSpace(out))
	assert.Equal(t, "hidden\n", ts.readFile(t, "side.txt"))
}

func TestExec_redirectBuiltin(t *testing.T) {
	ts := newTestShell(t)

	ts.run(t, "pwd > where.txt")

	assert.Equal(t, ts.dir+"\n", ts.readFile(t, "where.txt"))
}

func TestExec_redirectError(t *testing.T) {
	ts := newTestShell(t)

	// Repeated failures mustn't leak descriptors or stop the shell.
	for i := 0; i < 50; i++ {
		err := ts.RunLine("echo hi | cat > missing/dir/out.txt")

		var redirectErr *RedirectionError
		require.ErrorAs(t, err, &redirectErr)
	}

	assert.Equal(t, 1, ts.LastStatus())
	assert.Equal(t, "ok\n", ts.run(t, "echo ok"))
}

func TestExec_notFound(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "no-such-program-xyz arg")

	assert.Empty(t, out)
	assert.Equal(t, 127, ts.LastStatus())
	assert.Equal(t, "pipesh: no-such-program-xyz: command not found\n", ts.stderr.String())
	assert.Contains(t, ts.events.String(), `"unknown_command"`)
}

func TestExec_notFoundMidPipeline(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "echo hi | no-such-program-xyz | cat")

	assert.Empty(t, out)
	assert.Contains(t, ts.stderr.String(), "command not found")
}

func TestExec_permissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can execute anything")
	}
	ts := newTestShell(t)
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "script.sh"), []byte("echo hi\n"), 0644))

	ts.run(t, "./script.sh")

	assert.Equal(t, 126, ts.LastStatus())
	assert.Contains(t, ts.stderr.String(), "permission denied")
}

func TestExec_scriptWithoutInterpreterLine(t *testing.T) {
	ts := newTestShell(t)
	script := "echo from script \"$@\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "plain.sh"), []byte(script), 0755))

	out := ts.run(t, "./plain.sh one two | cat")

	assert.Equal(t, 0, ts.LastStatus())
	assert.Empty(t, ts.stderr.String())
	assert.Equal(t, "from script one two\n", out)
}

func TestExec_environment(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "GREETING=hi", "printenv GREETING", "export GREETING", "printenv GREETING")

	assert.Equal(t, "hi\n", out)
}

func TestExec_source(t *testing.T) {
	ts := newTestShell(t)
	script := "echo sourced $1\n"
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "script.sh"), []byte(script), 0644))

	out := ts.run(t, "source script.sh arg")

	assert.Equal(t, "sourced arg\n", out)
}

func TestExec_sourceUsage(t *testing.T) {
	ts := newTestShell(t)

	out := ts.run(t, "source")

	assert.Equal(t, "Usage: source <filename>\n", out)
	assert.Equal(t, 1, ts.LastStatus())
}

func TestExec_lookPathFromEnvironment(t *testing.T) {
	ts := newTestShell(t)
	require.NoError(t, os.Mkdir(filepath.Join(ts.dir, "bin"), 0755))
	script := "#!/bin/sh\necho custom\n"
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "bin", "my-tool"), []byte(script), 0755))

	require.NoError(t, ts.Env.Setenv("PATH", filepath.Join(ts.dir, "bin")+":"+os.Getenv("PATH")))

	assert.Equal(t, "custom\n", ts.run(t, "my-tool"))
}

func TestExec_lookPathFromTable(t *testing.T) {
	ts := newTestShell(t)
	require.NoError(t, os.Mkdir(filepath.Join(ts.dir, "bin"), 0755))
	script := "#!/bin/sh\necho from table\n"
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "bin", "my-tool"), []byte(script), 0755))

	require.NoError(t, ts.Env.Unsetenv("PATH"))
	require.NoError(t, ts.Vars.Set(vars.Path, filepath.Join(ts.dir, "bin")))

	assert.Equal(t, "from table\n", ts.run(t, "my-tool"))
}

func TestExec_interrupted(t *testing.T) {
	ts := newTestShell(t)
	pl, err := ParsePipeline("echo first > first.txt | echo second > second.txt")
	require.NoError(t, err)

	ts.interrupted.Set()
	_, err = ts.runPipeline(ts.foreground(), pl)

	assert.ErrorIs(t, err, ErrInterrupted)
	assert.NoFileExists(t, filepath.Join(ts.dir, "first.txt"))
}

func TestExec_interruptIgnoredInBackground(t *testing.T) {
	ts := newTestShell(t)
	pl, err := ParsePipeline("echo bg > bg.txt")
	require.NoError(t, err)

	ec := ts.foreground()
	ec.background = true
	ts.interrupted.Set()
	_, err = ts.runPipeline(ec, pl)

	assert.NoError(t, err)
	assert.Equal(t, "bg\n", ts.readFile(t, "bg.txt"))
}

func TestExec_interruptReported(t *testing.T) {
	ts := newTestShell(t)

	// The first stage sends SIGINT to the shell, the rest is abandoned.
	script := "kill -INT $PPID\nsleep 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "interrupt.sh"), []byte(script), 0644))

	err := ts.RunLine("sh interrupt.sh | echo unreachable > never.txt")

	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, 130, ts.LastStatus())
	assert.NoFileExists(t, filepath.Join(ts.dir, "never.txt"))
	assert.Contains(t, ts.events.String(), `"interrupt"`)
}

func TestExec_background(t *testing.T) {
	ts := newTestShell(t)

	ts.run(t, "sleep 0.1 | echo later > bg.txt &")
	assert.Equal(t, "[1] started\n", ts.stdout.String())

	require.NoError(t, ts.Close())

	assert.Equal(t, "later\n", ts.readFile(t, "bg.txt"))
	assert.Contains(t, ts.stdout.String(), "[1] done sleep 0.1 | echo later > bg.txt &")
	assert.Contains(t, ts.events.String(), `"finished":true`)
}

func TestExec_backgroundSkipsParentBuiltins(t *testing.T) {
	ts := newTestShell(t)
	require.NoError(t, os.Mkdir(filepath.Join(ts.dir, "sub"), 0755))

	ts.run(t, "cd sub &")
	require.NoError(t, ts.Close())

	assert.Equal(t, ts.dir, ts.Vars.Get(vars.CWD))
	assert.Equal(t, []string{ts.dir}, ts.Dirs.Paths())
}

func TestExec_backgroundUsesSnapshot(t *testing.T) {
	ts := newTestShell(t)
	require.NoError(t, os.Mkdir(filepath.Join(ts.dir, "sub"), 0755))

	ts.run(t, "sleep 0.2 | pwd > where.txt &", "cd sub")
	require.NoError(t, ts.Close())

	assert.Equal(t, ts.dir+"\n", ts.readFile(t, "where.txt"))
}

func TestExec_backgroundRelativeProgram(t *testing.T) {
	ts := newTestShell(t)
	require.NoError(t, os.Mkdir(filepath.Join(ts.dir, "sub"), 0755))
	script := "#!/bin/sh\necho tool ran\n"
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "tool.sh"), []byte(script), 0755))

	ts.run(t, "sleep 0.2 | ./tool.sh > out.txt &", "cd sub")
	require.NoError(t, ts.Close())

	assert.Equal(t, "tool ran\n", ts.readFile(t, "out.txt"))
	assert.NotContains(t, ts.stderr.String(), "not found")
}
