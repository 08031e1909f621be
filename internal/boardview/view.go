// Package boardview renders a board snapshot for the terminal or as JSON.
package boardview

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dyluth/lanes/internal/crm"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/fatih/color"
)

// CardLookup resolves an entity ID on the board to its card.
type CardLookup func(entityID string) (crm.Card, bool)

// Column is a stage with its cards, in board order.
type Column struct {
	Stage pipeline.Stage `json:"stage"`
	Cards []CardView     `json:"cards"`
}

// CardView is a card with its in-flight marker.
type CardView struct {
	crm.Card
	Pending bool `json:"pending,omitempty"`
}

// View is the renderable form of a board.
type View struct {
	Pipeline pipeline.PipelineType `json:"pipeline"`
	Total    int                   `json:"total"`
	Columns  []Column              `json:"columns"`
}

// Build resolves every entity of snap through lookup. Entities the lookup
// cannot resolve are shown by ID.
func Build(snap pipeline.Snapshot, lookup CardLookup) View {
	pending := make(map[string]bool, len(snap.Pending))
	for _, id := range snap.Pending {
		pending[id] = true
	}

	v := View{Pipeline: snap.Pipeline, Total: snap.Count(), Columns: make([]Column, 0, len(snap.Columns))}
	for _, col := range snap.Columns {
		c := Column{Stage: col.Stage, Cards: make([]CardView, 0, len(col.EntityIDs))}
		for _, id := range col.EntityIDs {
			card, ok := lookup(id)
			if !ok {
				card = crm.Card{ID: id, Title: id, StageID: col.Stage.ID}
			}
			c.Cards = append(c.Cards, CardView{Card: card, Pending: pending[id]})
		}
		v.Columns = append(v.Columns, c)
	}
	return v
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteText writes one section per stage, headed in the stage's color.
func WriteText(w io.Writer, v View) error {
	fmt.Fprintf(w, "%s board: %d entities\n", v.Pipeline, v.Total)
	for _, col := range v.Columns {
		header := fmt.Sprintf("■ %s (%d)", col.Stage.Label, len(col.Cards))
		if col.Stage.Terminal {
			header += " [closed]"
		}
		fmt.Fprintf(w, "\n%s\n", StageColor(col.Stage.Color).Sprint(header))

		if len(col.Cards) == 0 {
			fmt.Fprintln(w, "  (empty)")
			continue
		}
		for _, c := range col.Cards {
			line := "  • " + c.Title
			if c.Subtitle != "" {
				line += " · " + c.Subtitle
			}
			line += fmt.Sprintf("  [%s v%d]", c.ID, c.Version)
			if c.Pending {
				line += " ⏳"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// StageColor maps a "#rrggbb" stage color to a bold terminal color.
// Stages without a valid color render bold in the default color.
func StageColor(hex string) *color.Color {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return color.New(color.Bold)
	}
	return color.RGB(r, g, b).Add(color.Bold)
}

func parseHex(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
