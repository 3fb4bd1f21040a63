package filter

import (
	"cloud.google.com/go/civil"
)

// DateSet is a set of calendar dates. A nil DateSet used as an include filter
// means "every date"; a non-nil empty one rejects every date.
type DateSet map[civil.Date]struct{}

// NewDateSet returns a non-nil set holding dates.
func NewDateSet(dates ...civil.Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// Contains reports whether d is in s.
func (s DateSet) Contains(d civil.Date) bool {
	_, ok := s[d]
	return ok
}

// EvaluateDate reports whether d is filtered out: it is missing from a
// non-nil included set, or present in excluded.
func EvaluateDate(d civil.Date, included, excluded DateSet) bool {
	return (included != nil && !included.Contains(d)) || excluded.Contains(d)
}
