package model

import "fmt"

// HTTPError wraps an unexpected HTTP status from a fetched page.
type HTTPError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d from %s: %v", e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ParseError reports model output that could not be read as postings, even
// after salvaging the bracketed span.
type ParseError struct {
	Output string // raw model output, kept for diagnostics
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("context too big or output not valid JSON: %v", e.Err)
	}
	return "context too big or output not valid JSON"
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
