// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → in-memory collections written through to disk
//
// Services take repository interfaces, not concrete stores, so tests run
// them against memory.DB with a throwaway persister.
//
// Every method accepts plain Go values. Optional request fields arrive as
// pointers: nil means "not sent", which is how a missing field is told
// apart from an empty one.
package service

import (
	"strings"
)

// trimmed returns the trimmed value and whether it is non-empty.
// A nil pointer counts as empty.
func trimmed(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

// cleanLabels trims every label and drops the empty ones.
// The result is never nil.
func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
