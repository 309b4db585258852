package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1    lipgloss.Style
	Header2    lipgloss.Style
	Identifier lipgloss.Style
	Muted      lipgloss.Style
	Bold       lipgloss.Style
	Success    lipgloss.Style
	Error      lipgloss.Style
	Warning    lipgloss.Style
	Info       lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:    r.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("12")),
		Header2:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Identifier: r.NewStyle().Foreground(lipgloss.Color("13")),
		Muted:      r.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:       r.NewStyle().Bold(true),
		Success:    r.NewStyle().Foreground(lipgloss.Color("10")),
		Error:      r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning:    r.NewStyle().Foreground(lipgloss.Color("11")),
		Info:       r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}
