package transform

import (
	"errors"
	"fmt"
)

// DropError marks a single malformed record as skipped. It carries the
// reason recorded in the run summary and is never fatal on its own; any
// other error returned by the transformer is treated as systemic.
type DropError struct {
	Reason string
}

func (e *DropError) Error() string {
	return fmt.Sprintf("record dropped: %s", e.Reason)
}

// Drop returns a DropError with the given reason.
func Drop(reason string) *DropError {
	return &DropError{Reason: reason}
}

// AsDrop reports whether err marks a skipped record, returning its reason.
func AsDrop(err error) (string, bool) {
	var d *DropError
	if errors.As(err, &d) {
		return d.Reason, true
	}
	return "", false
}
