package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/infinivision/relfile/record"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	labelStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(lipgloss.Color("#626262"))

	numStyle = lipgloss.NewStyle().
			Width(8).
			Align(lipgloss.Right).
			PaddingRight(2)

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	deletedStyle = lipgloss.NewStyle().
			Faint(true).
			Strikethrough(true)
)

func renderHeader(path string, h record.Header) string {
	rows := []string{titleStyle.Render(path)}
	for _, kv := range [][2]string{
		{"recsize", strconv.Itoa(h.Recsize)},
		{"records", strconv.FormatInt(h.Records, 10)},
		{"lastrec", strconv.FormatInt(h.Lastrec, 10)},
	} {
		rows = append(rows, labelStyle.Render(kv[0])+kv[1])
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderSlots(slots []record.Slot) string {
	if len(slots) == 0 {
		return deletedStyle.Render("(no records)")
	}
	rows := make([]string, 0, len(slots))
	for _, s := range slots {
		num := numStyle.Render(strconv.FormatInt(s.Num, 10))
		if s.Deleted {
			rows = append(rows, num+deletedStyle.Render("deleted"))
			continue
		}
		rows = append(rows, num+liveStyle.Render(printable(trim(s.Data))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// printable escapes control bytes so binary records cannot garble the terminal.
func printable(data []byte) string {
	var b strings.Builder

	for _, c := range data {
		if c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&b, "\\x%02x", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
