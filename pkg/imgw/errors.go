package imgw

import "fmt"

// ValidationError reports a URL rejected before any network attempt.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("url %q rejected: %s", e.URL, e.Reason)
}

// TransferError reports a fetch that failed on every attempt.
type TransferError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ArchiveError reports a payload with a zip signature that could not be opened.
type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("corrupt archive: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
