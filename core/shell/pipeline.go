package shell

import (
	"strings"

	"github.com/anmitsu/go-shlex"
)

// BackgroundMarker is the token that runs a line as a background job.
const BackgroundMarker = "&"

// Stage is one command of a pipeline.
type Stage struct {
	Args     []string
	Redirect *Redirect
	First    bool
	Last     bool
}

// Pipeline is a parsed line of input.
type Pipeline struct {
	// Line is the text the pipeline was parsed from.
	Line       string
	Stages     []*Stage
	Background bool
}

// Segment splits a line on pipe characters that aren't quoted or escaped.
// The result always has at least one element; empty stages between pipes
// are an error.
func Segment(line string) ([]string, error) {
	out := splitPipes(line)
	if len(out) > 1 {
		for _, seg := range out {
			if strings.TrimSpace(seg) == "" {
				return nil, parseErrorf("unexpected token `|' in %q", strings.TrimSpace(line))
			}
		}
	}

	return out, nil
}

func splitPipes(line string) []string {
	var out []string
	rest := line
	for {
		idx := unquotedIndex(rest, '|')
		if idx < 0 {
			return append(out, rest)
		}
		out = append(out, rest[:idx])
		rest = rest[idx+1:]
	}
}

// ParsePipeline splits an expanded line into stages, extracting output
// redirection and the background marker from each. Expansion can leave a
// stage blank, for example one that only assigned a variable, so blank
// stages are kept and run as no-ops. Use Segment on the unexpanded line to
// reject empty stages.
func ParsePipeline(line string) (*Pipeline, error) {
	segments := splitPipes(line)

	pl := &Pipeline{Line: strings.TrimSpace(line)}
	for i, seg := range segments {
		rest, redirect, err := ParseRedirect(seg)
		if err != nil {
			return nil, err
		}

		args, err := tokenize(rest)
		if err != nil {
			return nil, err
		}

		args, background := stripBackground(args)
		pl.Background = pl.Background || background

		pl.Stages = append(pl.Stages, &Stage{
			Args:     args,
			Redirect: redirect,
			First:    i == 0,
			Last:     i == len(segments)-1,
		})
	}

	return pl, nil
}

func tokenize(s string) ([]string, error) {
	args, err := shlex.Split(s, true)
	if err != nil {
		return nil, parseErrorf("%v in %q", err, strings.TrimSpace(s))
	}
	return args, nil
}

func stripBackground(args []string) ([]string, bool) {
	out := args[:0]
	found := false
	for _, arg := range args {
		if arg == BackgroundMarker {
			found = true
			continue
		}
		out = append(out, arg)
	}
	return out, found
}
