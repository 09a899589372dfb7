package fmarket

import "fmt"

// ExtractionError is a failed browser-driven step. Stage names the step:
// install, launch, login, filter, table or parse.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed at %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
