package shell

import (
	"os"
	"strings"

	"github.com/spf13/afero"
)

// Redirect sends a stage's standard output to a file.
type Redirect struct {
	Path   string
	Append bool
}

// ParseRedirect finds the first unquoted > or >> in a stage and returns the
// stage with the marker and its target removed.
func ParseRedirect(stage string) (string, *Redirect, error) {
	idx := unquotedIndex(stage, '>')
	if idx < 0 {
		return stage, nil, nil
	}

	redirect := &Redirect{}
	start := idx + 1
	if start < len(stage) && stage[start] == '>' {
		redirect.Append = true
		start++
	}
	for start < len(stage) && isBlank(stage[start]) {
		start++
	}

	end := fieldEnd(stage, start)
	target := stage[start:end]
	switch {
	case target == "":
		return "", nil, parseErrorf("missing file name after `>' in %q", strings.TrimSpace(stage))
	case target[0] == '>':
		return "", nil, parseErrorf("unexpected token `>' in %q", strings.TrimSpace(stage))
	}

	words, err := tokenize(target)
	if err != nil {
		return "", nil, err
	}
	if len(words) != 1 || words[0] == "" {
		return "", nil, parseErrorf("ambiguous redirect %q", target)
	}
	redirect.Path = words[0]

	rest := stage[:idx] + " " + stage[end:]
	if unquotedIndex(rest, '>') >= 0 {
		return "", nil, parseErrorf("only one output redirection is allowed in %q", strings.TrimSpace(stage))
	}

	return rest, redirect, nil
}

// Open opens the target for writing, truncating it unless the redirect
// appends.
func (r *Redirect) Open(fs afero.Fs) (afero.File, error) {
	flag := os.O_CREATE | os.O_RDWR
	if r.Append {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}

	fd, err := fs.OpenFile(r.Path, flag, 0666)
	if err != nil {
		return nil, &RedirectionError{Path: r.Path, Err: err}
	}
	return fd, nil
}
