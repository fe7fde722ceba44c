package lifecycle

import "strings"

var (
	// nodeConflictMarkers are the stderr phrases of a node group that mean its ports are taken.
	nodeConflictMarkers = []string{
		"port is already allocated",
		"address already in use",
	}
	// compilerConflictMarkers are the stderr phrases of a compiler group that mean its port is taken.
	compilerConflictMarkers = []string{
		"port is already allocated",
	}
)

// Group identifies which container group produced some output.
type Group int

const (
	NodeGroup Group = iota
	CompilerGroup
)

// IsPortConflict reports whether stderr output of the given group shows a port conflict.
// Matching is exact and case-sensitive.
func IsPortConflict(group Group, stderr string) bool {
	markers := nodeConflictMarkers
	if group == CompilerGroup {
		markers = compilerConflictMarkers
	}
	for _, m := range markers {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}
