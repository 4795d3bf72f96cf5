package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dertin/rsapar/pkg/decimal"
	"github.com/dertin/rsapar/pkg/parser"
)

// maxListedErrors bounds the invalid lines shown in a summary.
const maxListedErrors = 10

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(20)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func row(key string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, keyStyle.Render(key), fmt.Sprint(value))
}

// renderReport draws the validation summary of one file.
func renderReport(path string, r *parser.Report, elapsed time.Duration) string {
	status := okStyle.Render("VALID")
	if !r.Valid() {
		status = errStyle.Render(fmt.Sprintf("%d INVALID", len(r.Errors)))
	}

	sections := []string{
		lipgloss.JoinHorizontal(lipgloss.Center, titleStyle.Render(path), "  ", status),
		"",
		row("lines", r.Lines),
	}
	for _, lt := range r.LineTypes() {
		sections = append(sections, row("  "+lt, r.Counts[lt]))
	}

	if keys := r.StatKeys(); len(keys) > 0 {
		sections = append(sections, "")
		for _, k := range keys {
			st := r.Stats[k]
			sections = append(sections, row(k, fmt.Sprintf("min %s  mean %s  max %s  sum %s",
				decimal.FormatCents(st.Min), decimal.FormatCents(st.Mean()),
				decimal.FormatCents(st.Max), decimal.FormatCents(st.Sum))))
		}
	}

	if keys := r.DistinctKeys(); len(keys) > 0 {
		sections = append(sections, "")
		for _, k := range keys {
			sections = append(sections, row(k, fmt.Sprintf("%d distinct", r.Distinct(k))))
		}
	}

	if !r.Valid() {
		sections = append(sections, "")
		for i, e := range r.Errors {
			if i == maxListedErrors {
				sections = append(sections, fmt.Sprintf("... %d more", len(r.Errors)-maxListedErrors))
				break
			}
			sections = append(sections, errStyle.Render(e.Error()))
		}
	}

	sections = append(sections, "", row("elapsed", elapsed.Round(time.Millisecond)))
	return boxStyle.Render(strings.Join(sections, "\n"))
}
