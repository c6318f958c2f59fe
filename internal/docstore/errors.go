package docstore

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Update when the target document does not exist.
var ErrNotFound = errors.New("document not found")

// PermissionError indicates an operation crossed an ownership boundary.
type PermissionError struct {
	Collection string
	Op         string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s %s", e.Op, e.Collection)
}

// IndexError indicates an ordered query needs a composite index that has not
// been provisioned yet.
type IndexError struct {
	Collection string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("query on %s requires a composite (owner, created_at) index", e.Collection)
}

// IsPermissionDenied reports whether err is an ownership violation.
func IsPermissionDenied(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsIndexMissing reports whether err means the required index is unavailable.
func IsIndexMissing(err error) bool {
	var ie *IndexError
	return errors.As(err, &ie)
}
