package shell

import (
	"errors"
	"testing"

	"github.com/josephlewis42/pipesh/core/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner() *Scanner {
	return &Scanner{
		Vars: vars.NewTable(nil),
		Env:  vars.NewMapEnvFromEnvList([]string{"FROM_ENV=env-value", "x=shadowed"}),
	}
}

func TestScanner_identity(t *testing.T) {
	lines := []string{
		"",
		"ls -l /tmp",
		"echo 'single quoted' \"double quoted\"",
		"cat file | wc -l > out.txt",
		"  leading and trailing blanks  ",
		"echo lone $ sign",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			got, err := newTestScanner().Scan(line)

			require.NoError(t, err)
			assert.Equal(t, line, got)
		})
	}
}

func TestScanner_trimsLineEnding(t *testing.T) {
	got, err := newTestScanner().Scan("echo hi\r\n")

	require.NoError(t, err)
	assert.Equal(t, "echo hi", got)
}

func TestScanner_assignThenExpand(t *testing.T) {
	sc := newTestScanner()

	got, err := sc.Scan("x=5")
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.Equal(t, "5", sc.Vars.Get("x"))

	got, err = sc.Scan("echo $x ${x}0 pre${x}")
	require.NoError(t, err)
	assert.Equal(t, "echo 5 50 pre5", got)
}

func TestScanner_expand(t *testing.T) {
	cases := map[string]struct {
		line     string
		expected string
	}{
		"unknown is a space":        {"echo $nope end", "echo   end"},
		"unknown braced":            {"[${nope}]", "[ ]"},
		"name stops at punctuation": {"echo $x.txt", "echo 1.txt"},
		"environment fallback":      {"echo $FROM_ENV", "echo env-value"},
		"table before environment":  {"echo $x", "echo 1"},
		"same line assignment":      {"y=2 echo $y", " echo 2"},
		"latest assignment wins":    {"y=2 y=3 echo $y", "  echo 3"},
		"escaped dollar":            {`echo \$x`, `echo \$x`},
		"double quotes kept":        {`echo "$x and $x"`, `echo "1 and 1"`},
		"option with equals":        {"ls --color=auto", "ls --color=auto"},
		"assignment references":     {"y=$x$x echo $y", " echo 11"},
		"trailing empty assignment": {"echo hi y=", "echo hi "},
		"unterminated brace":        {"echo ${x", "echo 1"},
		"unterminated unknown":      {"echo ${nope", "echo  "},
		"empty brace":               {"echo ${}", "echo  "},
		"invalid name in braces":    {"echo ${1x}", "echo  "},
		"dotted name in braces":     {"echo ${a.b}.txt", "echo  .txt"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			sc := newTestScanner()
			require.NoError(t, sc.Vars.Set("x", "1"))

			got, err := sc.Scan(tc.line)

			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestScanner_quotedValue(t *testing.T) {
	sc := newTestScanner()

	_, err := sc.Scan(`msg="hello   world" single='a $b' esc=a\ b`)
	require.NoError(t, err)

	assert.Equal(t, "hello   world", sc.Vars.Get("msg"))
	assert.Equal(t, "a  ", sc.Vars.Get("single"))
	assert.Equal(t, "a b", sc.Vars.Get("esc"))
}

func TestScanner_errors(t *testing.T) {
	cases := map[string]string{
		"leading equals":     "=value",
		"blank after equals": "x= y",
	}

	for tn, line := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := newTestScanner().Scan(line)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "expected ParseError, got %v", err)
		})
	}
}

func TestScanner_errorCommitsNothing(t *testing.T) {
	sc := newTestScanner()

	_, err := sc.Scan("a=1 b=2 =oops")
	require.Error(t, err)

	_, ok := sc.Vars.Lookup("a")
	assert.False(t, ok)
	_, ok = sc.Vars.Lookup("b")
	assert.False(t, ok)
}
