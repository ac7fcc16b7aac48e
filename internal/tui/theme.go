package tui

import "github.com/charmbracelet/lipgloss"

// Theme collects the lipgloss styles of one color scheme.
type Theme struct {
	Name string

	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Selected  lipgloss.Style
	Folder    lipgloss.Style
	File      lipgloss.Style
	Loading   lipgloss.Style
	StatusBar lipgloss.Style
	ErrorText lipgloss.Style
	Overlay   lipgloss.Style
	Key       lipgloss.Style
}

// DarkTheme is the default scheme.
func DarkTheme() Theme {
	return Theme{
		Name:      "dark",
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		Subtle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Selected:  lipgloss.NewStyle().Reverse(true),
		Folder:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		File:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Loading:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("236")),
		ErrorText: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(1, 2),
		Key: lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
	}
}

// LightTheme mirrors DarkTheme with colors readable on light terminals.
func LightTheme() Theme {
	return Theme{
		Name:      "light",
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25")),
		Subtle:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Selected:  lipgloss.NewStyle().Reverse(true),
		Folder:    lipgloss.NewStyle().Foreground(lipgloss.Color("26")),
		File:      lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		Loading:   lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Italic(true),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("253")),
		ErrorText: lipgloss.NewStyle().Foreground(lipgloss.Color("124")),
		Overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("26")).
			Padding(1, 2),
		Key: lipgloss.NewStyle().Foreground(lipgloss.Color("25")),
	}
}

// ThemeByName resolves a configured theme name, defaulting to dark.
func ThemeByName(name string) Theme {
	if name == "light" {
		return LightTheme()
	}
	return DarkTheme()
}
