package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TubeRows is the height of a rendered tube.
const TubeRows = 3

// Seven-segment glyphs, one row per line.
var glyphs = map[rune][TubeRows]string{
	'0': {" _ ", "| |", "|_|"},
	'1': {"   ", "  |", "  |"},
	'2': {" _ ", " _|", "|_ "},
	'3': {" _ ", " _|", " _|"},
	'4': {"   ", "|_|", "  |"},
	'5': {" _ ", "|_ ", " _|"},
	'6': {" _ ", "|_ ", "|_|"},
	'7': {" _ ", "  |", "  |"},
	'8': {" _ ", "|_|", "|_|"},
	'9': {" _ ", "|_|", " _|"},
	'-': {"   ", " _ ", "   "},
	':': {" ", ".", "."},
	' ': {"   ", "   ", "   "},
}

// unknown runes show a cold "8"
var coldGlyph = glyphs['8']

// tubeRows lays out s as plain text rows, tubes separated by a space.
func tubeRows(s string) [TubeRows]string {
	var rows [TubeRows]strings.Builder
	for i, r := range []rune(s) {
		g, ok := glyphs[r]
		if !ok {
			g = coldGlyph
		}
		for row := range rows {
			if i > 0 {
				rows[row].WriteByte(' ')
			}
			rows[row].WriteString(g[row])
		}
	}
	var out [TubeRows]string
	for row := range rows {
		out[row] = rows[row].String()
	}
	return out
}

// RenderTubes renders digits, '-', ':' and ' ' as lit nixie tubes. Pass
// lit=false for a face that has no time yet.
func RenderTubes(s string, lit bool) string {
	style := TubeStyle
	if !lit {
		style = UnlitStyle
	}
	rows := tubeRows(s)
	lines := make([]string, 0, TubeRows)
	for _, row := range rows {
		lines = append(lines, style.Render(row))
	}
	return strings.Join(lines, "\n")
}

// RenderClockFace frames the tubes with a status line underneath.
func RenderClockFace(digits string, lit bool, status string, statusStyle lipgloss.Style) string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		RenderTubes(digits, lit),
		"",
		statusStyle.Render(status),
	)
	border := TubeColor
	if !lit {
		border = MutedColor
	}
	return FaceBoxStyle(border).Render(body)
}
