package interop

import "fmt"

// FormatError reports an I/O or parse failure while reading or writing
// external data. Line is 0 when the failure is not tied to a line.
type FormatError struct {
	Source string
	Line   int
	Err    error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// LogicalError reports data that parsed fine but makes no sense as a ledger.
// Message is meant to be shown to the user as is.
type LogicalError struct {
	Message string
}

func (e *LogicalError) Error() string { return e.Message }
