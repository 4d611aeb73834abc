package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const identiconSize = 5

// identiconPalette holds the colors an identicon may pick from.
var identiconPalette = []lipgloss.Color{
	"33",  // blue
	"39",  // cyan
	"34",  // green
	"40",  // bright green
	"178", // gold
	"208", // orange
	"196", // red
	"163", // magenta
	"135", // purple
	"99",  // violet
	"45",  // sky
	"214", // amber
}

// identiconHash is djb2 over the id bytes.
func identiconHash(id string) uint32 {
	var h uint32 = 5381
	for _, b := range []byte(id) {
		h = h*33 + uint32(b)
	}
	return h
}

// identiconGrid derives a horizontally symmetric 5x5 cell grid from the id.
// Only the left three columns are drawn from hash bits; the right two mirror
// them.
func identiconGrid(id string) [identiconSize][identiconSize]bool {
	h := identiconHash(id)
	var grid [identiconSize][identiconSize]bool
	bit := 0
	for row := 0; row < identiconSize; row++ {
		for col := 0; col <= identiconSize/2; col++ {
			on := (h>>(bit%32))&1 == 1
			bit++
			if bit%32 == 0 {
				h = h*33 + uint32(bit)
			}
			grid[row][col] = on
			grid[row][identiconSize-1-col] = on
		}
	}
	return grid
}

func identiconColor(id string) lipgloss.Color {
	return identiconPalette[identiconHash(id)%uint32(len(identiconPalette))]
}

// Identicon renders the full 5x5 block-art identicon, one string per row.
func Identicon(id string) []string {
	grid := identiconGrid(id)
	style := lipgloss.NewStyle().Foreground(identiconColor(id))
	rows := make([]string, identiconSize)
	for r := 0; r < identiconSize; r++ {
		var sb strings.Builder
		for c := 0; c < identiconSize; c++ {
			if grid[r][c] {
				sb.WriteString("██")
			} else {
				sb.WriteString("  ")
			}
		}
		rows[r] = style.Render(sb.String())
	}
	return rows
}

// InlineIdenticon renders the middle grid row as a compact one-line marker
// for lists and tab labels.
func InlineIdenticon(id string) string {
	grid := identiconGrid(id)
	style := lipgloss.NewStyle().Foreground(identiconColor(id))
	var sb strings.Builder
	for c := 0; c < identiconSize; c++ {
		if grid[identiconSize/2][c] {
			sb.WriteString("▀")
		} else {
			sb.WriteString("▄")
		}
	}
	return style.Render(sb.String())
}
