package shell

import (
	"strings"

	"github.com/josephlewis42/pipesh/core/vars"
)

// Scanner applies variable assignments and expands variable references in a
// line of input.
//
// The line is scanned once from left to right. A field of the form
// NAME=value is an assignment: it is removed from the output and NAME is
// staged with the expanded value. References to $NAME or ${NAME} are
// replaced with the value of the most recent staged assignment, the
// variable table or the environment, in that order, and a single space if
// none of them define it. Staged assignments are written to the table only
// once the whole line has been scanned without error.
type Scanner struct {
	Vars *vars.Table
	// Env is consulted for names missing from Vars, it may be nil.
	Env vars.Env
}

type assignment struct {
	name  string
	value string
}

type scanState struct {
	sc       *Scanner
	assigned []assignment
}

// Scan returns the rewritten line and writes the line's assignments to the
// table.
func (sc *Scanner) Scan(line string) (string, error) {
	out, assigned, err := sc.scan(line)
	if err != nil {
		return "", err
	}
	if err := sc.commit(assigned); err != nil {
		return "", err
	}
	return out, nil
}

// scan rewrites the line, returning the assignments it made without applying
// them.
func (sc *Scanner) scan(line string) (string, []assignment, error) {
	line = strings.TrimRight(line, "\r\n")
	st := &scanState{sc: sc}

	var out strings.Builder
	for i := 0; i < len(line); {
		if isBlank(line[i]) {
			j := i
			for j < len(line) && isBlank(line[j]) {
				j++
			}
			out.WriteString(line[i:j])
			i = j
			continue
		}

		end := fieldEnd(line, i)
		rewritten, err := st.field(line[i:end], end < len(line))
		if err != nil {
			return "", nil, err
		}
		out.WriteString(rewritten)
		i = end
	}

	return out.String(), st.assigned, nil
}

func (sc *Scanner) commit(assigned []assignment) error {
	for _, a := range assigned {
		if err := sc.Vars.Set(a.name, a.value); err != nil {
			return err
		}
	}
	return nil
}

// field rewrites a single blank delimited field. blankFollows is set if the
// field is followed by a blank rather than the end of the line.
func (st *scanState) field(f string, blankFollows bool) (string, error) {
	eq := assignIndex(f)
	switch {
	case eq < 0:
		return st.expand(f, false), nil
	case eq == 0:
		return "", parseErrorf("unexpected '=' in %q: assignments can't start with '='", f)
	}

	name := f[:eq]
	if !vars.ValidName(name) {
		// Arguments like --color=auto aren't assignments.
		return st.expand(f, false), nil
	}

	if eq == len(f)-1 && blankFollows {
		return "", parseErrorf("assignment to %s: '=' can't be followed by a blank", name)
	}

	value := st.expand(f[eq+1:], true)
	st.assigned = append(st.assigned, assignment{name: name, value: value})
	return "", nil
}

// expand substitutes variable references in s. If unquote is set, quotes are
// removed and backslash escapes resolved, otherwise they're copied for the
// tokenizer to handle.
//
// A bare $name ends at the first byte that can't be part of an identifier,
// so $HOME/bin and $x.txt expand the variable and keep the suffix. ${name}
// ends at the closing brace or the end of s.
func (st *scanState) expand(s string, unquote bool) string {
	var out strings.Builder
	var dq, sq bool

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && !(unquote && sq):
			if !unquote {
				out.WriteByte(c)
			}
			out.WriteByte(s[i+1])
			i++

		case unquote && c == '"' && !sq:
			dq = !dq

		case unquote && c == '\'' && !dq:
			sq = !sq

		case c != '$':
			out.WriteByte(c)

		case i+1 < len(s) && s[i+1] == '{':
			name := s[i+2:]
			next := len(s)
			if end := strings.IndexByte(name, '}'); end >= 0 {
				name = name[:end]
				next = i + 2 + end + 1
			}
			out.WriteString(st.lookup(name))
			i = next - 1

		default:
			j := i + 1
			for j < len(s) && vars.IsNameByte(s[j]) {
				j++
			}
			if j == i+1 {
				// A lone $ is literal.
				out.WriteByte(c)
				continue
			}
			out.WriteString(st.lookup(s[i+1 : j]))
			i = j - 1
		}
	}

	return out.String()
}

// lookup returns the value of name, or a single space if it's unset or
// can't be a variable name.
func (st *scanState) lookup(name string) string {
	if !vars.ValidName(name) {
		return " "
	}
	for i := len(st.assigned) - 1; i >= 0; i-- {
		if st.assigned[i].name == name {
			return st.assigned[i].value
		}
	}
	if val, ok := st.sc.Vars.Lookup(name); ok {
		return val
	}
	if st.sc.Env != nil {
		if val, ok := st.sc.Env.LookupEnv(name); ok {
			return val
		}
	}
	return " "
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// fieldEnd returns the index of the first blank at or after start that isn't
// quoted or escaped, or len(s).
func fieldEnd(s string, start int) int {
	var dq, sq bool
	for i := start; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && !sq:
			i++
		case c == '"' && !sq:
			dq = !dq
		case c == '\'' && !dq:
			sq = !sq
		case isBlank(c) && !dq && !sq:
			return i
		}
	}
	return len(s)
}

// unquotedIndex returns the index of the first target byte in s that isn't
// quoted or escaped, or -1.
func unquotedIndex(s string, target byte) int {
	var dq, sq bool
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && !sq:
			i++
		case c == '"' && !sq:
			dq = !dq
		case c == '\'' && !dq:
			sq = !sq
		case c == target && !dq && !sq:
			return i
		}
	}
	return -1
}

func assignIndex(f string) int {
	return unquotedIndex(f, '=')
}
