// Package printer renders CLI output with colors.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Output destinations. Tests replace them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Stdout, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(Stdout, msg)
}

// Error prints a formatted error with title, explanation, and suggestions to
// stderr and returns a plain error carrying only the title, for Cobra.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details printed between the
// explanation and the suggestions. Keys are printed in sorted order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(Stderr, "\n")
		for _, k := range keys {
			fmt.Fprintf(Stderr, "  %s: %s\n", k, context[k])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(Stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Transition prints the final result of a move. label maps stage IDs to
// display labels. It returns an error for every outcome except committed and
// noop so commands can exit non-zero.
func Transition(r pipeline.TransitionResult, label func(string) string) error {
	from, to := label(r.FromStageID), label(r.ToStageID)

	switch r.Outcome {
	case pipeline.OutcomeCommitted:
		if r.Corrected() {
			Warning("%s moved to %s (requested %s)\n", r.EntityID, label(r.FinalStageID), to)
			return nil
		}
		Success("%s moved from %s to %s\n", r.EntityID, from, to)
		return nil

	case pipeline.OutcomeNoOp:
		Info("%s is already in %s\n", r.EntityID, from)
		return nil

	case pipeline.OutcomeRejected:
		return ErrorWithContext(
			fmt.Sprintf("Move rejected: %s", r.Reason),
			r.ErrorMessage,
			map[string]string{"Entity": r.EntityID, "From": from, "To": to},
			rejectionHints(r.Reason),
		)

	default:
		suggestions := []string{"Check the store is reachable and try again"}
		if r.Outcome == pipeline.OutcomeConflicted {
			suggestions = []string{"Run 'lanes board' to see the current stage, then retry"}
		}
		return ErrorWithContext(
			fmt.Sprintf("Move %s", strings.ReplaceAll(string(r.Outcome), "_", " ")),
			r.ErrorMessage,
			map[string]string{"Entity": r.EntityID, "Reason": string(r.Reason)},
			suggestions,
		)
	}
}

func rejectionHints(reason pipeline.Reason) []string {
	switch reason {
	case pipeline.ReasonEntityBusy:
		return []string{"Wait for the in-flight move to finish"}
	case pipeline.ReasonInvalidReference:
		return []string{"Run 'lanes board' to list entity IDs", "Run 'lanes stages' to list stage IDs"}
	default:
		return nil
	}
}
