package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusBadges = map[statusKind]struct {
	label  string
	colors text.Colors
}{
	statusInfo:  {"info", text.Colors{text.FgCyan}},
	statusOK:    {"ok", text.Colors{text.FgGreen}},
	statusWarn:  {"warn", text.Colors{text.FgYellow}},
	statusError: {"fail", text.Colors{text.FgRed, text.Bold}},
}

// renderStatusLine formats one "label  badge  message" row; only the badge is coloured.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge, ok := statusBadges[kind]
	if !ok {
		badge = statusBadges[statusInfo]
	}
	tag := fmt.Sprintf("%-4s", badge.label)
	if colorize {
		tag = badge.colors.Sprint(tag)
	}
	line := fmt.Sprintf("  %-20s %s", label, tag)
	if message = strings.TrimSpace(message); message != "" {
		line += "  " + message
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	rule := strings.Repeat("=", len(title))
	if colorize {
		bold := text.Colors{text.Bold}
		return []string{bold.Sprint(title), rule}
	}
	return []string{title, rule}
}

func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func percent(part, whole int) string {
	if whole <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(whole))
}
