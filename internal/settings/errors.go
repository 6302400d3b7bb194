package settings

import "errors"

var (
	// ErrInvalidThemeName is returned when a theme name contains characters
	// outside [A-Za-z0-9_-]. Theme names become file names, so anything else
	// is rejected at the boundary.
	ErrInvalidThemeName = errors.New("invalid theme name")

	// ErrThemeNotFound is returned when deleting a theme that has no file.
	ErrThemeNotFound = errors.New("theme not found")

	// ErrEmptyPatch is returned when a settings update carries no fields.
	ErrEmptyPatch = errors.New("no settings provided")
)
