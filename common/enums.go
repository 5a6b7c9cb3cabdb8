// Enums shared between configuration and persisted reader state. Kept apart
// from config so storage records do not depend on configuration package.
package common

//go:generate go tool go-enum --marshal --names

// Color scheme requested for reading.
// ENUM(light, dark, sepia)
type Theme int

// Dark reports whether theme uses light text on dark background.
func (t Theme) Dark() bool {
	return t == ThemeDark
}

// Text alignment for chapter body.
// ENUM(left, right, center, justify)
type TextAlign int
