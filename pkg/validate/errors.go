package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
)

// Issue is a single invariant violation.
type Issue struct {
	Node domain.NodeID // Node the issue was found on, if any
	Slot domain.SlotID // Slot the issue was found on, if any
	Err  error         // Wrapped sentinel plus detail
}

func (e *Issue) Error() string {
	var where []string
	if e.Node != "" {
		where = append(where, fmt.Sprintf("node %s", e.Node))
	}
	if e.Slot != "" {
		where = append(where, fmt.Sprintf("slot %s", e.Slot))
	}
	if len(where) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", strings.Join(where, ", "), e.Err)
}

func (e *Issue) Unwrap() error { return e.Err }

// AggregateError collects every issue found in a document.
type AggregateError struct {
	Issues []*Issue
}

func (e *AggregateError) Error() string {
	if len(e.Issues) == 1 {
		return e.Issues[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, issue.Error())
	}
	return b.String()
}

// Unwrap exposes the issues to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Issues))
	for i, issue := range e.Issues {
		errs[i] = issue
	}
	return errs
}

// Issues returns the issues carried by err, or nil if err is not an AggregateError.
func Issues(err error) []*Issue {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Issues
	}
	return nil
}
