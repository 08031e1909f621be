package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/lanes/pkg/store"
)

// FormatTable writes records as a table with columns ID, VER, STAGE, TITLE
// and UPDATED. label maps stage IDs to display labels. Returns the number of
// records written.
func FormatTable(w io.Writer, records []store.Record, p string, label func(string) string, now time.Time) int {
	if len(records) == 0 {
		fmt.Fprintf(w, "No %s entities found\n", p)
		return 0
	}

	fmt.Fprintf(w, "%-10s %-5s %-16s %-40s %s\n", "ID", "VER", "STAGE", "TITLE", "UPDATED")
	fmt.Fprintf(w, "%-10s %-5s %-16s %-40s %s\n",
		"----------", "-----", "----------------", "----------------------------------------", "--------")

	for _, r := range records {
		fmt.Fprintf(w, "%-10s %-5s %-16s %-40s %s\n",
			formatID(r.ID),
			formatVersion(r.Version),
			truncate(label(r.StageID), 16),
			formatTitle(r.Title),
			formatAge(r.UpdatedAtMs, now),
		)
	}

	noun := "entity"
	if len(records) != 1 {
		noun = "entities"
	}
	fmt.Fprintf(w, "\n%d %s %s\n", len(records), p, noun)
	return len(records)
}

// FormatJSONL writes records as line-delimited JSON.
func FormatJSONL(w io.Writer, records []store.Record) error {
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal entity to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one record as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, r store.Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entity to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatID truncates an entity ID to its first 8 characters.
func formatID(id string) string {
	return truncateRaw(id, 8)
}

// formatVersion shows "-" for the initial version and "vN" after that.
func formatVersion(version int64) string {
	if version <= 1 {
		return "-"
	}
	return fmt.Sprintf("v%d", version)
}

// formatTitle keeps the first non-empty line, at most 40 characters.
func formatTitle(title string) string {
	for _, line := range strings.Split(title, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return truncate(trimmed, 40)
		}
	}
	return "-"
}

// formatAge renders a millisecond timestamp as "2m ago", "1h ago", etc.
func formatAge(ms int64, now time.Time) string {
	if ms == 0 {
		return "-"
	}
	diff := now.Sub(time.UnixMilli(ms))
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateRaw(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
