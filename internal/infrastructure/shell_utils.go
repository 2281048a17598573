package infrastructure

import "strings"

// shellSpecialChars are the bytes that change meaning in a POSIX shell word.
const shellSpecialChars = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// ShellEscape quotes s for display in a copy-pasteable command line. It is
// only used for logs and history; exec.Command receives the raw argument.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecialChars) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ShellEscapeCommand renders binary and args as a single escaped command line.
func ShellEscapeCommand(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, ShellEscape(binary))
	for _, arg := range args {
		parts = append(parts, ShellEscape(arg))
	}
	return strings.Join(parts, " ")
}
