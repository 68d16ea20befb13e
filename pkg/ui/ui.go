// Package ui renders terminal output for the phantom command.
package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/chazu/blockphantom/pkg/graph"
	"github.com/chazu/blockphantom/pkg/phantom"
)

var (
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#00D9FF")
	successColor   = lipgloss.Color("#04B575")
	errorColor     = lipgloss.Color("#FF5F87")
	warningColor   = lipgloss.Color("#FFAF00")
	mutedColor     = lipgloss.Color("#626262")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			PaddingLeft(1)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	infoStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	stepStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	checkmark = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true).
			SetString("✓")

	cross = lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true).
		SetString("✗")

	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	tableHeadStyle = cellStyle.Bold(true).Foreground(primaryColor)
)

// Printer writes styled lines to w.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

// Header prints a section header.
func (p *Printer) Header(title string) {
	p.println(headerStyle.Render("▸ " + title))
}

// Success prints a success message.
func (p *Printer) Success(message string) {
	p.println(stepStyle.Render(checkmark.String() + " " + successStyle.Render(message)))
}

// Error prints an error message.
func (p *Printer) Error(message string) {
	p.println(stepStyle.Render(cross.String() + " " + errorStyle.Render(message)))
}

// Warning prints a warning message.
func (p *Printer) Warning(message string) {
	p.println(stepStyle.Render("⚠ " + warningStyle.Render(message)))
}

// Info prints an info message.
func (p *Printer) Info(message string) {
	p.println(stepStyle.Render(infoStyle.Render(message)))
}

// Findings prints validation findings, errors in red and warnings in orange.
func (p *Printer) Findings(findings []graph.ValidationError) {
	for _, f := range findings {
		if f.Severity == graph.SeverityError {
			p.Error(f.Error())
		} else {
			p.Warning(f.Error())
		}
	}
}

func statusStyle(s phantom.HoleStatus) lipgloss.Style {
	switch {
	case s.Connected:
		return cellStyle.Foreground(successColor)
	case s.Covered:
		return cellStyle.Foreground(mutedColor)
	case s.HasConnector:
		return cellStyle.Foreground(warningColor)
	default:
		return cellStyle
	}
}

// HoleTable renders the holes of b with their global position, axis and
// status.
func HoleTable(b *phantom.Block) string {
	holes := b.Holes()
	statuses := b.Statuses()

	rows := make([][]string, len(holes))
	for i, h := range holes {
		ax := h.Axis()
		rows[i] = []string{
			strconv.Itoa(h.ID),
			h.Name,
			fmt.Sprintf("%7.2f %7.2f %7.2f", h.Position.X, h.Position.Y, h.Position.Z),
			fmt.Sprintf("%5.2f %5.2f %5.2f", ax.X, ax.Y, ax.Z),
			statuses[i].String(),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers("ID", "HOLE", "POSITION", "AXIS", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeadStyle
			}
			if col == 4 && row >= 0 && row < len(statuses) {
				return statusStyle(statuses[row])
			}
			return cellStyle
		})
	return t.Render()
}
