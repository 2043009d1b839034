package util

import (
	"log"
	"os"
	"strings"
)

// Logging is a clumsy switch that affects what Logf does.
//
// If Logging is true, then Logf calls log.Printf.
var Logging = false

// Logf is a silly utility function that calls log.Printf if Logging
// is true.
func Logf(format string, args ...interface{}) {
	if !Logging {
		return
	}
	log.Printf(format, args...)
}

// PathListEnv returns the non-empty, whitespace-trimmed entries of the
// environment variable with the given name, split on the OS path list
// separator.
func PathListEnv(name string) []string {
	var acc []string
	for _, part := range strings.Split(os.Getenv(name), string(os.PathListSeparator)) {
		part = strings.TrimSpace(part)
		if part != "" {
			acc = append(acc, part)
		}
	}
	return acc
}

// Uniques returns the given strings with duplicates removed, preserving
// the order of first appearance.
func Uniques(strs []string) []string {
	seen := make(map[string]bool, len(strs))
	acc := make([]string, 0, len(strs))
	for _, s := range strs {
		if seen[s] {
			continue
		}
		seen[s] = true
		acc = append(acc, s)
	}
	return acc
}
