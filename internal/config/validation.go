package config

import (
	"fmt"
	"strings"
)

// ValidationError holds all validation failures for a config file.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

// validate checks the parsed config for correctness: every source
// needs a unique, non-empty id and a type this runtime's loaders know
// about (spec.md §4.1 names openapi|graphql|postman|mcp).
func validate(cfg *FileConfig) error {
	var errs []string

	ids := make(map[string]bool, len(cfg.Sources))
	for i, s := range cfg.Sources {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("sources[%d]: id is required", i))
		}
		if ids[s.ID] {
			errs = append(errs, fmt.Sprintf("sources[%d]: duplicate id %q", i, s.ID))
		}
		ids[s.ID] = true
		if err := validateSourceType(s.Type); err != nil {
			errs = append(errs, fmt.Sprintf("sources[%d]: %v", i, err))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateSourceType(t string) error {
	switch t {
	case "openapi", "graphql", "postman", "mcp":
		return nil
	default:
		return fmt.Errorf("invalid type %q (must be openapi, graphql, postman, or mcp)", t)
	}
}
