package mosaic

import (
	"errors"
	"fmt"
)

// ErrPrecondition is matched by every PreconditionError
var ErrPrecondition = errors.New("mosaic: precondition violated")

// PreconditionError reports a programming error: adding the mosaic to
// itself, adding a raster twice or using a non-positive blend width.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("mosaic %s: %s", e.Op, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}
