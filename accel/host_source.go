package accel

import (
	"fmt"
	"regexp"
	"strings"
)

// kernelDecl matches "__kernel void name(params)" and "kernel void name(params)".
var kernelDecl = regexp.MustCompile(`(?:^|[^\w])(?:__kernel|kernel)\s+void\s+([A-Za-z_]\w*)\s*\(([^)]*)\)`)

// errorDirective matches "#error message" lines.
var errorDirective = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*error\b[ \t]*(.*)$`)

// sourceUnit is the result of scanning OpenCL C source text for the host backend.
type sourceUnit struct {
	kernels map[string]int // entry point -> parameter count
	diags   []string
}

func (u *sourceUnit) errorf(line, col int, format string, args ...any) {
	u.diags = append(u.diags, fmt.Sprintf("<source>:%d:%d: error: %s", line, col, fmt.Sprintf(format, args...)))
}

// scanSource strips comments, checks delimiter balance and #error directives
// and collects kernel declarations. It does not type-check.
func scanSource(src string) *sourceUnit {
	u := &sourceUnit{kernels: map[string]int{}}

	if strings.TrimSpace(src) == "" {
		u.errorf(1, 1, "empty program source")
		return u
	}

	code, unterminated := stripComments(src)
	if unterminated >= 0 {
		line, col := position(src, unterminated)
		u.errorf(line, col, "unterminated /* comment")
	}

	checkDelimiters(u, code)

	for _, m := range errorDirective.FindAllStringSubmatchIndex(code, -1) {
		line, col := position(code, m[0])
		u.errorf(line, col, "#error %s", strings.TrimSpace(code[m[2]:m[3]]))
	}

	for _, m := range kernelDecl.FindAllStringSubmatch(code, -1) {
		u.kernels[m[1]] = countParams(m[2])
	}

	return u
}

// stripComments blanks comments and the contents of string and character
// literals, keeping newlines so that positions in the result match the input.
// It returns the offset of an unterminated block comment, or -1.
func stripComments(src string) (string, int) {
	out := []byte(src)
	i := 0
	for i < len(out) {
		switch {
		case out[i] == '"' || out[i] == '\'':
			quote := out[i]
			i++
			for i < len(out) && out[i] != quote && out[i] != '\n' {
				if out[i] == '\\' && i+1 < len(out) && out[i+1] != '\n' {
					out[i] = ' '
					i++
				}
				out[i] = ' '
				i++
			}
			if i < len(out) && out[i] == quote {
				i++
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '*':
			start := i
			out[i], out[i+1] = ' ', ' '
			i += 2
			closed := false
			for i < len(out) {
				if out[i] == '*' && i+1 < len(out) && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i += 2
					closed = true
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if !closed {
				return string(out), start
			}
		default:
			i++
		}
	}
	return string(out), -1
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

func checkDelimiters(u *sourceUnit, code string) {
	type open struct {
		ch  byte
		off int
	}
	var stack []open

	for i := 0; i < len(code); i++ {
		c := code[i]
		switch c {
		case '(', '[', '{':
			stack = append(stack, open{c, i})
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1].ch != closers[c] {
				line, col := position(code, i)
				u.errorf(line, col, "extraneous closing '%c'", c)
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}

	for _, o := range stack {
		line, col := position(code, o.off)
		u.errorf(line, col, "unmatched '%c'", o.ch)
	}
}

func countParams(list string) int {
	list = strings.TrimSpace(list)
	if list == "" || list == "void" {
		return 0
	}
	return strings.Count(list, ",") + 1
}

// position converts a byte offset to a 1-based line and column.
func position(s string, off int) (int, int) {
	if off > len(s) {
		off = len(s)
	}
	line := 1 + strings.Count(s[:off], "\n")
	col := off - strings.LastIndex(s[:off], "\n")
	return line, col
}
