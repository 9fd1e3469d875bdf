package filter

import "fmt"

// InvalidFacetError reports a facet value that is not part of the corpus schema
type InvalidFacetError struct {
	Facet string
	Value string
}

func (e *InvalidFacetError) Error() string {
	return fmt.Sprintf("invalid %s facet: unknown value %q", e.Facet, e.Value)
}

// InvalidDateRangeError reports a malformed or inverted custom date range
type InvalidDateRangeError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidDateRangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid date range: bad %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid date range: %s %q", e.Field, e.Value)
}

func (e *InvalidDateRangeError) Unwrap() error {
	return e.Err
}
