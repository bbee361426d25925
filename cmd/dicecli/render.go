package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	apiconnect "github.com/osa030/dicebox/internal/api/connect"
	"github.com/osa030/dicebox/internal/app/game"
	"github.com/osa030/dicebox/internal/app/notification"
)

const (
	ansiReset = "\x1b[0m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
	ansiRed   = "\x1b[31m"
	ansiDim   = "\x1b[2m"
)

const (
	markSelected = "*"
	markPlaying  = ">"
)

// renderStatus renders the grid, the piece buttons and the control state.
func renderStatus(st *game.Status, colorize bool) string {
	var b strings.Builder
	b.WriteString(renderGrid(st, colorize))
	b.WriteString("\n")
	b.WriteString(renderPieces(st))
	b.WriteString("\n")

	fmt.Fprintf(&b, "  %-10s %s\n", "State:", st.State)
	play := st.PlayLabel
	if st.PlayDisabled {
		play += " (disabled)"
	}
	fmt.Fprintf(&b, "  %-10s %s\n", "Control:", play)
	fmt.Fprintf(&b, "  %-10s %s\n", "Groups:", enabledText(st.Enabled))
	if st.LastError != "" {
		fmt.Fprintf(&b, "  %-10s %s\n", "Error:", paint(st.LastError, ansiRed, colorize))
	}
	return b.String()
}

// renderGrid renders one row per label and one column per position.
// Selected cells carry a "*" and sounding cells a ">".
func renderGrid(st *game.Status, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, st.Positions+1)
	header = append(header, "")
	for pos := 1; pos <= st.Positions; pos++ {
		header = append(header, fmt.Sprintf("%02d", pos))
	}
	tw.AppendHeader(header)

	for _, label := range st.Labels {
		enabled := contains(st.Enabled, label)
		row := make(table.Row, 0, st.Positions+1)

		name := strings.ToUpper(label)
		if !enabled {
			name += " (off)"
		}
		row = append(row, name)

		for pos := 1; pos <= st.Positions; pos++ {
			row = append(row, renderCell(st, fmt.Sprintf("%s%02d", label, pos), enabled, colorize))
		}
		tw.AppendRow(row)
	}

	columnConfigs := make([]table.ColumnConfig, 0, st.Positions+1)
	for i := 2; i <= st.Positions+1; i++ {
		columnConfigs = append(columnConfigs, table.ColumnConfig{Number: i, Align: text.AlignCenter, AlignHeader: text.AlignCenter})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderCell(st *game.Status, id string, enabled, colorize bool) string {
	switch {
	case st.IsPlaying(id):
		return paint(markPlaying+id, ansiGreen, colorize)
	case st.IsSelected(id):
		return paint(markSelected+id, ansiBlue, colorize)
	case !enabled:
		return paint(" "+id, ansiDim, colorize)
	default:
		return " " + id
	}
}

func renderPieces(st *game.Status) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Piece", "Button", "Playing"})
	for _, p := range st.Pieces {
		playing := ""
		if p.Playing {
			playing = "yes"
		}
		tw.AppendRow(table.Row{p.Label, p.ButtonLabel, playing})
	}
	return tw.Render()
}

// formatEvent renders one Subscribe stream event as a single line.
func formatEvent(ev *apiconnect.Event) string {
	prefix := fmt.Sprintf("[Sequence: %d] %s", ev.SequenceNo, ev.Type)

	switch ev.Type {
	case notification.TypeInitialState:
		if ev.Status == nil {
			return prefix
		}
		return fmt.Sprintf("%s: selection=%s groups=%s control=%q", prefix,
			strings.Join(ev.Status.Selection, " "), enabledText(ev.Status.Enabled), ev.Status.PlayLabel)
	case notification.TypeSelection:
		return fmt.Sprintf("%s: %s control=%q", prefix, strings.Join(ev.Selection, " "), ev.Label)
	case notification.TypeGroups:
		return fmt.Sprintf("%s: %s", prefix, enabledText(ev.Groups))
	case notification.TypeCellStarted, notification.TypeCellStopped:
		return fmt.Sprintf("%s: %s", prefix, ev.Cell)
	case notification.TypePieceStarted, notification.TypePieceStopped:
		return fmt.Sprintf("%s: %s %q", prefix, ev.Piece, ev.Label)
	case notification.TypePlayLabel:
		return fmt.Sprintf("%s: %q", prefix, ev.Label)
	case notification.TypeError:
		return fmt.Sprintf("%s: %s", prefix, ev.Message)
	default:
		return prefix
	}
}

func enabledText(groups []string) string {
	if len(groups) == 0 {
		return "none"
	}
	return strings.Join(groups, ",")
}

func paint(s, color string, colorize bool) string {
	if !colorize {
		return s
	}
	return color + s + ansiReset
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
