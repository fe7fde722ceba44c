package internal

import (
	"regexp"
	"strings"
)

var invalidProjectCharsRE = regexp.MustCompile(`[^a-z0-9_-]`)

// SanitizeProjectName returns name lowercased with any character that docker compose
// rejects in a project name replaced with underscores.
// Compose also requires the name to start with a letter or digit, so leading
// separators are trimmed.
func SanitizeProjectName(name string) string {
	name = invalidProjectCharsRE.ReplaceAllLiteralString(strings.ToLower(name), "_")
	return strings.TrimLeft(name, "_-")
}

// ContainerName returns the first name docker reports for a container without the
// leading slash, or the shortened id when the container has no name.
func ContainerName(names []string, id string) string {
	if len(names) > 0 && names[0] != "" {
		return strings.TrimPrefix(names[0], "/")
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
