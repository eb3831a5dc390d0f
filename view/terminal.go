// Package view holds the view sinks that render slot changes: a styled
// terminal renderer for the demo CLI and a structured-log sink for the
// daemon.
package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ferro-labs/faceslots"
	"github.com/ferro-labs/faceslots/providers"
)

var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

var (
	slotStyle      = lipgloss.NewStyle().Foreground(purple).Bold(true)
	boundStyle     = lipgloss.NewStyle().Foreground(green)
	selectingStyle = lipgloss.NewStyle().Foreground(yellow)
	addStyle       = lipgloss.NewStyle().Foreground(dim)
)

// AddLabel is shown for a slot with nothing bound.
const AddLabel = "+ add"

// Cell renders the provider part of a slot: the bound provider, or the
// "add" affordance when the slot is unknown or unbound.
func Cell(change faceslots.SlotChange) string {
	switch {
	case change.State == faceslots.StateSelecting:
		name := "choosing"
		if change.Provider != nil {
			name = change.Provider.Name + ", choosing"
		}
		return selectingStyle.Render("… " + name)
	case change.Provider != nil:
		label := change.Provider.Name
		if change.Provider.Icon != "" {
			label = fmt.Sprintf("%s (%s)", label, change.Provider.Icon)
		}
		return boundStyle.Render("● " + label)
	default:
		return addStyle.Render(AddLabel)
	}
}

// Line renders one change as a single line without trailing newline.
func Line(change faceslots.SlotChange) string {
	slot := slotStyle.Render(fmt.Sprintf("%-10s", change.Location.String()))
	return fmt.Sprintf("%s #%d  %s", slot, change.SlotID, Cell(change))
}

// Terminal writes one styled line per change.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal creates a Terminal sink writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// SlotChanged implements faceslots.ViewSink.
func (t *Terminal) SlotChanged(_ context.Context, change faceslots.SlotChange) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, Line(change))
	return err
}

// Board renders a snapshot as a bordered table.
func Board(s faceslots.Snapshot) string {
	rows := make([][]string, 0, len(s.Slots))
	for _, st := range s.Slots {
		change := faceslots.SlotChange{SlotID: st.ID, Location: st.Location, Provider: st.Provider, State: st.State}
		rows = append(rows, []string{st.Location.String(), fmt.Sprint(st.ID), st.State.String(), Cell(change)})
	}
	return render([]string{"SLOT", "ID", "STATE", "PROVIDER"}, rows)
}

// Catalog renders the available providers as a table.
func Catalog(infos []providers.Info) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		types := make([]string, 0, len(info.Types))
		for _, t := range info.Types {
			types = append(types, string(t))
		}
		rows = append(rows, []string{info.Name, strings.Join(types, ", "), info.Component})
	}
	return render([]string{"PROVIDER", "TYPES", "COMPONENT"}, rows)
}

func render(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}
