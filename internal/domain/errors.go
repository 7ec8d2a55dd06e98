package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned when a CSV import contains no data rows
	ErrEmptyInput = errors.New("csv input contains no data")

	// ErrMissingRequiredField is returned when auto-mapping leaves a required catalog field unmapped
	ErrMissingRequiredField = errors.New("required catalog field is not mapped")

	// ErrInvalidTransition is returned when a lifecycle action targets a terminal record
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrProductNotFound is returned when a product id has no catalog entry
	ErrProductNotFound = errors.New("product not found")

	// ErrMatchNotFound is returned when a match id is unknown
	ErrMatchNotFound = errors.New("match not found")

	// ErrRecommendationNotFound is returned when a recommendation id is unknown
	ErrRecommendationNotFound = errors.New("recommendation not found")

	// ErrRateLimited is returned when a client exceeds the request rate limit
	ErrRateLimited = errors.New("rate limit exceeded")
)

// MissingFieldsError lists the required catalog fields that remained unmapped
// after auto-mapping and any manual overrides. It aborts the import call.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Unwrap() error { return ErrMissingRequiredField }

// InvalidTransitionError reports a lifecycle action attempted on a record
// whose current status does not permit it. The record is left untouched.
type InvalidTransitionError struct {
	Entity string
	ID     string
	Action string
	From   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %s", e.Action, e.Entity, e.ID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// RowParseWarning records a malformed CSV row that was skipped. Non-fatal:
// the batch continues and the warning lands in the import report.
type RowParseWarning struct {
	Row     int    `json:"row"`
	Reason  string `json:"reason"`
	Snippet string `json:"snippet,omitempty"`
}
