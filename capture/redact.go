package capture

import (
	"regexp"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const mask = "***"

// safeVars are environment variables whose values are not sensitive.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
	"XDG_RUNTIME_DIR": true, "DISPLAY": true, "WAYLAND_DISPLAY": true,
	"HISTFILE": true, "HISTSIZE": true, "SHLVL": true,
	"COLUMNS": true, "LINES": true, "LC_ALL": true, "LC_CTYPE": true,
	"GOOS": true, "GOARCH": true, "CGO_ENABLED": true, "DEBUG": true,
}

var (
	reWordAssign = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.+)$`)
	reLineAssign = regexp.MustCompile(`(^|\s)([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)
	reBearer     = regexp.MustCompile(`(?i)\b(bearer\s+)[A-Za-z0-9._~+/\-]{8,}=*`)
	reAPIToken   = regexp.MustCompile(`\b(?:sk|pk|rk|ghp|gho|ghs|github_pat|xox[abprs]|glpat|AKIA)[-_]?[A-Za-z0-9_\-]{16,}`)
)

// Redact masks assignment values and credential-looking tokens in a
// transcript, line by line. Everything else is preserved byte for byte.
func Redact(transcript string) string {
	lines := strings.Split(transcript, "\n")
	for i, line := range lines {
		lines[i] = RedactLine(line)
	}
	return strings.Join(lines, "\n")
}

// RedactLine masks one transcript line. Lines that parse as bash are redacted
// from the syntax tree; others fall back to pattern matching.
func RedactLine(line string) string {
	if strings.TrimSpace(line) == "" {
		return line
	}
	if spans, ok := assignmentSpans(line); ok {
		line = applySpans(line, spans)
	} else {
		line = regexRedact(line)
	}
	line = reBearer.ReplaceAllString(line, "${1}"+mask)
	return reAPIToken.ReplaceAllString(line, mask)
}

type span struct{ start, end int }

// assignmentSpans returns the byte ranges of unsafe assignment values in line.
// ok is false when line is not valid bash.
func assignmentSpans(line string) (spans []span, ok bool) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return nil, false
	}

	syntax.Walk(prog, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.Assign:
			if n.Name != nil && n.Value != nil && !safeVars[n.Name.Value] {
				spans = append(spans, span{int(n.Value.Pos().Offset()), int(n.Value.End().Offset())})
			}
		case *syntax.Word:
			// NAME=value as a plain argument, e.g. after `env` or a shell prompt.
			lit := n.Lit()
			m := reWordAssign.FindStringSubmatchIndex(lit)
			if m != nil && !safeVars[lit[m[2]:m[3]]] {
				start := int(n.Pos().Offset())
				spans = append(spans, span{start + m[4], start + m[5]})
			}
		}
		return true
	})
	return spans, true
}

// applySpans replaces every span of line with the mask. Overlapping spans
// are merged.
func applySpans(line string, spans []span) string {
	if len(spans) == 0 {
		return line
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var sb strings.Builder
	sb.Grow(len(line))
	pos := 0
	for _, s := range spans {
		if s.end > len(line) {
			s.end = len(line)
		}
		if s.start < pos || s.start >= s.end {
			continue
		}
		sb.WriteString(line[pos:s.start])
		sb.WriteString(mask)
		pos = s.end
	}
	sb.WriteString(line[pos:])
	return sb.String()
}

// regexRedact is a fallback for lines that fail to parse.
func regexRedact(line string) string {
	return reLineAssign.ReplaceAllStringFunc(line, func(m string) string {
		parts := reLineAssign.FindStringSubmatch(m)
		if safeVars[parts[2]] {
			return m
		}
		return parts[1] + parts[2] + "=" + mask
	})
}
