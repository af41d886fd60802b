package handlers

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/arvik"
	"github.com/dargueta/arvik/format"
	"github.com/hashicorp/go-multierror"
)

// Selection restricts a handler to the members with the given names. A nil or
// empty Selection matches every member.
//
// Names are compared after truncation to the longest name an archive can hold,
// so the original name of a file can be used to select it.
type Selection struct {
	names   []string
	indexes map[string][]int
	matched bitmap.Bitmap
}

// NewSelection creates a selection of the given member names. If no names are
// given, the selection matches everything.
func NewSelection(names []string) *Selection {
	selection := &Selection{
		names:   names,
		indexes: make(map[string][]int, len(names)),
		matched: bitmap.New(len(names)),
	}
	for i, name := range names {
		key := format.TruncateName(name)
		selection.indexes[key] = append(selection.indexes[key], i)
	}
	return selection
}

// Match returns true if the member should be processed, and remembers that
// the name was seen.
func (s *Selection) Match(name string) bool {
	if s == nil || len(s.names) == 0 {
		return true
	}

	indexes, ok := s.indexes[name]
	if !ok {
		return false
	}
	for _, i := range indexes {
		s.matched.Set(i, true)
	}
	return true
}

// Unmatched returns the requested names that haven't been matched by any
// member so far, in the order they were given.
func (s *Selection) Unmatched() []string {
	if s == nil {
		return nil
	}

	var unmatched []string
	for i, name := range s.names {
		if !s.matched.Get(i) {
			unmatched = append(unmatched, name)
		}
	}
	return unmatched
}

// Err returns an error wrapping [arvik.ErrMemberNotFound] for every unmatched
// name, or nil if all were found.
func (s *Selection) Err() error {
	var result *multierror.Error
	for _, name := range s.Unmatched() {
		result = multierror.Append(
			result, arvik.ErrMemberNotFound.WithMessage(fmt.Sprintf("%q", name)))
	}
	return result.ErrorOrNil()
}
