package pipeline

import (
	"errors"
	"fmt"
)

// ErrUnknownSource is returned for a source key missing from the catalog.
var ErrUnknownSource = errors.New("unknown source")

// InputError reports a request parameter the pipeline cannot act on.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
