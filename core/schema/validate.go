package schema

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Validate checks the structural shape of a schema: collection names are
// present and unique, and field names are unique inside each collection.
// Field names and type strings are otherwise unrestricted.
func Validate(s Schema) error {
	var result *multierror.Error

	seen := make(map[string]bool, len(s.Collections))
	for i, c := range s.Collections {
		if c.Name == "" {
			result = multierror.Append(result, fmt.Errorf("collections[%d]: name is required", i))
			continue
		}
		if seen[c.Name] {
			result = multierror.Append(result, fmt.Errorf("collection %q declared more than once", c.Name))
		}
		seen[c.Name] = true

		fields := make(map[string]bool, len(c.Fields))
		for _, f := range c.Fields {
			if fields[f.Name] {
				result = multierror.Append(result, fmt.Errorf("collection %q: field %q declared more than once", c.Name, f.Name))
			}
			fields[f.Name] = true
		}
	}

	return result.ErrorOrNil()
}
