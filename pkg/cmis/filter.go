package cmis

import (
	"sort"
	"strings"
)

// requiredProperties are projected whatever the filter says.
var requiredProperties = []string{PropObjectID, PropObjectTypeID, PropBaseTypeID}

// Filter is a set of property query names. A nil Filter selects every
// property.
type Filter map[string]struct{}

// ParseFilter parses a comma-separated filter. An empty filter, or one
// containing "*", selects every property. A non-nil result always contains
// the required properties.
func ParseFilter(s string) Filter {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	f := make(Filter)
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "*" {
			return nil
		}
		if name != "" {
			f[name] = struct{}{}
		}
	}
	if len(f) == 0 {
		return nil
	}

	for _, name := range requiredProperties {
		f[name] = struct{}{}
	}
	return f
}

// NewFilter builds a filter from query names.
func NewFilter(names ...string) Filter {
	return ParseFilter(strings.Join(names, ","))
}

// Validate fails with ErrInvalidArgument when the filter names a property
// that is in none of known.
func (f Filter) Validate(known map[string]struct{}) error {
	var unknown []string
	for name := range f {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return newError(ErrInvalidArgument, "", "unknown properties in filter: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// clone returns a private copy the projector can consume.
func (f Filter) clone() Filter {
	if f == nil {
		return nil
	}
	c := make(Filter, len(f))
	for name := range f {
		c[name] = struct{}{}
	}
	return c
}

// take reports whether queryName passes the filter. Matched names are
// removed, so a property emitted twice is only kept the first time.
func (f Filter) take(queryName string) bool {
	if f == nil {
		return true
	}
	if _, ok := f[queryName]; !ok {
		return false
	}
	delete(f, queryName)
	return true
}
