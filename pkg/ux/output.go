// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text, borders

	ColorSuccess = lipgloss.Color("#2CD7C7") // Bright teal for success
	ColorWarning = lipgloss.Color("#F4D03F") // Gold/amber for warnings
	ColorError   = lipgloss.Color("#E74C3C") // Red for errors
	ColorMuted   = lipgloss.Color("#2C4A54") // Slate for muted text
)

// Styles holds the pre-configured lipgloss styles of one renderer.
type Styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}

// NewStyles builds the palette styles for r. The renderer decides whether
// colors survive, so the same styles degrade to plain text on a pipe.
func NewStyles(r *lipgloss.Renderer) Styles {
	box := func(border lipgloss.TerminalColor) lipgloss.Style {
		return r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)
	}
	return Styles{
		Title:     r.NewStyle().Bold(true).Foreground(ColorTealBright),
		Subtitle:  r.NewStyle().Foreground(ColorTealPrimary),
		Bold:      r.NewStyle().Bold(true),
		Muted:     r.NewStyle().Foreground(ColorMuted),
		Success:   r.NewStyle().Foreground(ColorSuccess),
		Warning:   r.NewStyle().Foreground(ColorWarning),
		Error:     r.NewStyle().Foreground(ColorError),
		Highlight: r.NewStyle().Foreground(ColorTealBright).Bold(true),

		Box:        box(ColorTealDeep),
		WarningBox: box(ColorWarning),
		ErrorBox:   box(ColorError),
	}
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Field is one labelled value in a Fields block.
type Field struct {
	Key   string
	Value string
}

// =============================================================================
// Printer
// =============================================================================

// Printer writes personality-aware output to a pair of writers.
//
// Description:
//
//	Normal output goes to out. In machine mode warnings and errors go to
//	errOut so scripts can parse out without filtering.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	level  PersonalityLevel
	styles Styles
}

// NewPrinter creates a printer. A nil errOut means out.
func NewPrinter(out, errOut io.Writer, level PersonalityLevel) *Printer {
	if errOut == nil {
		errOut = out
	}
	return &Printer{
		out:    out,
		errOut: errOut,
		level:  level,
		styles: NewStyles(lipgloss.NewRenderer(out)),
	}
}

// Level returns the personality level.
func (p *Printer) Level() PersonalityLevel { return p.level }

// Styles returns the printer's styles.
func (p *Printer) Styles() Styles { return p.styles }

// Render returns the icon with appropriate styling
func (p *Printer) Render(i Icon) string {
	if p.level != PersonalityFull {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return p.styles.Success.Render(string(i))
	case IconWarning:
		return p.styles.Warning.Render(string(i))
	case IconError:
		return p.styles.Error.Render(string(i))
	case IconPending:
		return p.styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Title prints a styled title
func (p *Printer) Title(text string) {
	switch p.level {
	case PersonalityMachine:
		return
	case PersonalityMinimal:
		fmt.Fprintln(p.out, text)
	default:
		fmt.Fprintln(p.out, p.styles.Title.Render(text))
	}
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.out, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(p.out, "%s %s\n", p.Render(IconSuccess), p.styles.Success.Render(text))
	}
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.errOut, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.out, "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(p.out, "%s %s\n", p.Render(IconWarning), p.styles.Warning.Render(text))
	}
}

// Error prints an error message
func (p *Printer) Error(text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.errOut, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.out, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(p.out, "%s %s\n", p.Render(IconError), p.styles.Error.Render(text))
	}
}

// Fields prints labelled values: aligned lines, a rounded box in full
// mode, or key=value pairs on one line in machine mode.
func (p *Printer) Fields(title string, fields []Field) {
	if p.level == PersonalityMachine {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, machineKey(f.Key)+"="+f.Value)
		}
		fmt.Fprintln(p.out, strings.Join(parts, " "))
		return
	}

	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key))
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		key := fmt.Sprintf("%-*s", width, f.Key)
		if p.level == PersonalityFull {
			key = p.styles.Muted.Render(key)
		}
		lines = append(lines, key+"  "+f.Value)
	}
	body := strings.Join(lines, "\n")

	if p.level == PersonalityMinimal {
		fmt.Fprintln(p.out, title)
		fmt.Fprintln(p.out, body)
		return
	}
	fmt.Fprintln(p.out, p.styles.Box.Render(p.styles.Title.Render(title)+"\n"+body))
}

// ProgressBar renders a simple progress bar
func (p *Printer) ProgressBar(current, total int, width int) string {
	if p.level == PersonalityMachine || total <= 0 {
		return fmt.Sprintf("%d/%d", current, total)
	}
	pct := min(float64(current)/float64(total), 1)
	filled := int(pct * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	if p.level == PersonalityFull {
		bar = p.styles.Success.Render(strings.Repeat("█", filled)) +
			p.styles.Muted.Render(strings.Repeat("░", empty))
	}
	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}

// machineKey turns a display label into a snake_case key.
func machineKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}
