package filter

import (
	"fmt"
	"strings"
)

// FilterSpecError reports a filter tree the evaluator cannot interpret.
type FilterSpecError struct {
	Path   []string // Labels leading to the offending node
	Reason string
}

func (e *FilterSpecError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("invalid filter spec at root: %s", e.Reason)
	}
	return fmt.Sprintf("invalid filter spec at %s: %s", strings.Join(e.Path, "/"), e.Reason)
}
