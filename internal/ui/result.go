package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is the box printed when a command finishes
type Result struct {
	Type            ResultType
	Title           string
	Details         map[string]string
	Error           error
	Troubleshooting []string
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Troubleshooting: troubleshooting, Width: GetTerminalWidth()}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the styled result box
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	var color lipgloss.Color
	var title string
	switch r.Type {
	case ResultFailure:
		color = ErrorColor
		title = fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, r.Title)
	case ResultWarning:
		color = WarningColor
		title = fmt.Sprintf("%s  WARNING  ─  %s", WarningMarker, r.Title)
	default:
		color = SuccessColor
		title = fmt.Sprintf("%s  SUCCESS  ─  %s", SuccessMarker, r.Title)
	}

	lines := []string{"", lipgloss.NewStyle().Foreground(color).Bold(true).Render(title), ""}

	if len(r.Details) > 0 {
		lines = append(lines, renderPairs(r.Details), "")
	}
	if r.Error != nil {
		lines = append(lines, ErrorStyle.Render("Error: "+r.Error.Error()), "")
	}
	if len(r.Troubleshooting) > 0 {
		tips := []string{lipgloss.NewStyle().Foreground(MutedColor).Bold(true).Render("Troubleshooting:")}
		for _, tip := range r.Troubleshooting {
			tips = append(tips, MutedStyle.Render("  • "+tip))
		}
		lines = append(lines, strings.Join(tips, "\n"), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// RenderSuccess renders a success box with the given title and details
func RenderSuccess(title string, details map[string]string) string {
	return NewSuccessResult(title, details).Render()
}

// RenderFailure renders a failure box with the given title, error, and troubleshooting tips
func RenderFailure(title string, err error, troubleshooting []string) string {
	return NewFailureResult(title, err, troubleshooting).Render()
}
