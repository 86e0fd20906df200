package session

import "slices"

// Themes available to users.
var Themes = []string{"light", "dark", "citrus", "ocean", "forest", "sunset"}

const DefaultTheme = "citrus"

// ValidTheme reports whether name is a known theme.
func ValidTheme(name string) bool {
	return slices.Contains(Themes, name)
}

// Theme returns name when it is a known theme and DefaultTheme otherwise.
func Theme(name string) string {
	if !ValidTheme(name) {
		return DefaultTheme
	}
	return name
}
