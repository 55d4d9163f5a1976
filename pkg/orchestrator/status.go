// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Status colours.
var (
	colorPass = lipgloss.Color("#8BC34A")
	colorFail = lipgloss.Color("#e53935")
	colorWarn = lipgloss.Color("#FFC107")
)

// StatusPrinter writes the pass/fail lines a user watches for.
type StatusPrinter struct {
	w      io.Writer
	color  bool
	styles map[lipgloss.Color]lipgloss.Style
}

// NewStatusPrinter returns a printer writing to w. Colour is applied
// only when color is true.
func NewStatusPrinter(w io.Writer, color bool) *StatusPrinter {
	r := lipgloss.NewRenderer(w)
	styles := make(map[lipgloss.Color]lipgloss.Style)
	for _, c := range []lipgloss.Color{colorPass, colorFail, colorWarn} {
		styles[c] = r.NewStyle().Bold(true).Foreground(c)
	}
	return &StatusPrinter{w: w, color: color, styles: styles}
}

// Pass prints msg in green.
func (p *StatusPrinter) Pass(msg string) { p.print(colorPass, msg) }

// Fail prints msg in red.
func (p *StatusPrinter) Fail(msg string) { p.print(colorFail, msg) }

// Warn prints msg in yellow.
func (p *StatusPrinter) Warn(msg string) { p.print(colorWarn, msg) }

func (p *StatusPrinter) print(c lipgloss.Color, msg string) {
	if p == nil || p.w == nil {
		return
	}
	if p.color {
		msg = p.styles[c].Render(msg)
	}
	fmt.Fprintln(p.w, msg)
}

// colorEnabled decides whether status output is coloured: never for
// TERM=dumb or with NO_COLOR set, otherwise only on a terminal.
func colorEnabled(terminal string, w io.Writer) bool {
	if terminal == "dumb" {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
