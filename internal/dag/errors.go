package dag

import (
	"fmt"
	"strings"

	"github.com/vk/repobuild/internal/target"
)

// UnresolvedDependencyError reports a dependency reference that names no
// declared target.
type UnresolvedDependencyError struct {
	From target.Info
	To   target.Info
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("%s depends on %s, which is not declared", e.From, e.To)
}

// CycleError reports a dependency cycle. Path starts and ends with the same
// target.
type CycleError struct {
	Path []target.Info
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = p.String()
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}
