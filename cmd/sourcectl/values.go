package main

import (
	"strconv"
	"strings"

	"github.com/danmuck/sourcesync/internal/transport"
)

// parseValues types command-line arguments the way the engine expects them:
// integers, then floats, then strings verbatim.
func parseValues(args []string) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			out = append(out, n)
			continue
		}
		if f, err := strconv.ParseFloat(a, 64); err == nil && strings.ContainsAny(a, ".eE") {
			out = append(out, f)
			continue
		}
		out = append(out, a)
	}
	return out
}

func transportMode(raw string) transport.Mode {
	return transport.Mode(strings.ToLower(strings.TrimSpace(raw)))
}
