package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/amishk599/hireflow/internal/model"
)

// Failure is what a user sees when a run does not produce a report: a short
// message and a diagnostic trace.
type Failure struct {
	Message string
	Trace   string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// UserError reports whether the failure is an input problem (bad URL, blank
// page) rather than an unexpected error.
func (f *Failure) UserError() bool {
	return errors.Is(f.Err, ErrInvalidURL) || errors.Is(f.Err, ErrEmptyPage)
}

// Safe runs r and turns any returned error or panic into a *Failure, so a
// single bad run never takes the process down.
func Safe(ctx context.Context, r Runner, url string) (report *model.Report, failure *Failure) {
	defer func() {
		if v := recover(); v != nil {
			err, ok := v.(error)
			if !ok {
				err = fmt.Errorf("%v", v)
			}
			report = nil
			failure = &Failure{
				Message: "An Error Occurred: " + err.Error(),
				Trace:   fmt.Sprintf("panic: %v\n\n%s", v, debug.Stack()),
				Err:     err,
			}
		}
	}()

	report, err := r.Run(ctx, url)
	if err != nil {
		return nil, NewFailure(err)
	}
	return report, nil
}

// NewFailure builds a Failure from err, with the wrapped error chain as trace.
func NewFailure(err error) *Failure {
	msg := "An Error Occurred: " + err.Error()
	switch {
	case errors.Is(err, ErrInvalidURL):
		msg = "Enter a valid URL starting with http:// or https://"
	case errors.Is(err, ErrEmptyPage):
		msg = "Could not load content from this URL."
	}
	return &Failure{Message: msg, Trace: errorChain(err), Err: err}
}

func errorChain(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth+1), e, e)
			}
			break
		}
		err = errors.Unwrap(err)
	}
	return b.String()
}
