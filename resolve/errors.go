package resolve

import (
	"fmt"
	"strings"

	"github.com/StackDoubleFlow/qpm/pkgid"
)

// NoSolutionError is fatal (spec §7): the search exhausted every candidate
// it could try without finding a consistent selection. Trail records the
// sequence of decisions the search had made leading up to the dead end, so
// the printed diagnostic reads like a derivation rather than a stack trace.
type NoSolutionError struct {
	Package pkgid.ID
	Range   pkgid.Range
	Trail   []string
	Reason  string
}

func (e *NoSolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no version of %s satisfies %s: %s", e.Package, e.Range, e.Reason)
	if len(e.Trail) > 0 {
		b.WriteString("\n  while resolving:\n")
		for _, t := range e.Trail {
			fmt.Fprintf(&b, "    %s\n", t)
		}
	}
	return b.String()
}
