// Package resolver turns user-typed entity references into full entity IDs.
package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// ResolveEntityID resolves input against the known entity IDs.
//
// An exact match always wins, so short non-UUID IDs keep working. Otherwise
// input must be a prefix of at least MinShortIDLength characters matching
// exactly one ID.
func ResolveEntityID(ids []string, input string) (string, error) {
	for _, id := range ids {
		if id == input {
			return id, nil
		}
	}

	if len(input) < MinShortIDLength {
		return "", &NotFoundError{ShortID: input, TooShort: true}
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: input}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: input, Matches: matches}
	}
}

// NotFoundError indicates no entity matched the input.
type NotFoundError struct {
	ShortID  string
	TooShort bool
}

func (e *NotFoundError) Error() string {
	if e.TooShort {
		return fmt.Sprintf("no entity '%s' (short IDs must be at least %d characters)", e.ShortID, MinShortIDLength)
	}
	return fmt.Sprintf("no entities found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple entities matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d entities", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists the matching IDs (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	msg := fmt.Sprintf("'%s' matches %d entities:\n", err.ShortID, len(err.Matches))

	displayCount := min(len(err.Matches), 10)
	for i := 0; i < displayCount; i++ {
		msg += fmt.Sprintf("  %s\n", err.Matches[i])
	}
	if len(err.Matches) > 10 {
		msg += fmt.Sprintf("  ...and %d more\n", len(err.Matches)-10)
	}
	return msg
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
