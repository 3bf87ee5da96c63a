package collection

import (
	"fmt"
	"strings"
)

// Stage identifies where in a run an error happened.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StagePersist   Stage = "persist"
	StageArchive   Stage = "archive"
	StageDispatch  Stage = "dispatch"
	StageRun       Stage = "run"
)

// CollectionError is a structured per-stage failure.
type CollectionError struct {
	Stage   Stage  `json:"stage"`
	ItemRef string `json:"item_ref,omitempty"`
	Message string `json:"message"`
}

// String renders the error as "[stage] item: message".
func (e CollectionError) String() string {
	if e.ItemRef != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Stage, e.ItemRef, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// DefaultMaxErrors bounds how many errors a run retains.
const DefaultMaxErrors = 100

// ErrorCollection accumulates CollectionErrors up to a limit and counts the
// overflow.
type ErrorCollection struct {
	errors    []CollectionError
	maxErrors int
	dropped   int
}

// NewErrorCollection creates a collection keeping at most maxErrors entries.
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return &ErrorCollection{
		errors:    make([]CollectionError, 0),
		maxErrors: maxErrors,
	}
}

// Add records an error, or counts it as dropped when full.
func (c *ErrorCollection) Add(stage Stage, itemRef, message string) {
	if len(c.errors) >= c.maxErrors {
		c.dropped++
		return
	}
	c.errors = append(c.errors, CollectionError{Stage: stage, ItemRef: itemRef, Message: message})
}

// Addf records a formatted error.
func (c *ErrorCollection) Addf(stage Stage, itemRef, format string, args ...any) {
	c.Add(stage, itemRef, fmt.Sprintf(format, args...))
}

// Len returns the number of errors seen, including dropped ones.
func (c *ErrorCollection) Len() int {
	return len(c.errors) + c.dropped
}

// Errors returns the retained errors.
func (c *ErrorCollection) Errors() []CollectionError {
	out := make([]CollectionError, len(c.errors))
	copy(out, c.errors)
	return out
}

// Dropped returns how many errors exceeded the limit.
func (c *ErrorCollection) Dropped() int {
	return c.dropped
}

// CountByStage groups retained errors by stage.
func (c *ErrorCollection) CountByStage() map[Stage]int {
	counts := make(map[Stage]int)
	for _, e := range c.errors {
		counts[e.Stage]++
	}
	return counts
}

// SummarizeErrors joins errors into the text stored on a job.
func SummarizeErrors(errs []CollectionError, dropped int) string {
	if len(errs) == 0 && dropped == 0 {
		return ""
	}
	lines := make([]string, 0, len(errs)+1)
	for _, e := range errs {
		lines = append(lines, e.String())
	}
	if dropped > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more errors", dropped))
	}
	return strings.Join(lines, "\n")
}
