package toolpath

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateSchemaDocument checks that a loader-supplied JSON Schema
// document is itself well-formed (compiles against its declared draft's
// meta-schema) before DisplayHint is trusted to compact it. Loaders
// pull schemas from third-party OpenAPI/GraphQL/Postman sources that
// can emit malformed fragments; compiling here catches that before a
// hint gets silently rendered as "any" for the wrong reason.
func ValidateSchemaDocument(name string, schema []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return fmt.Errorf("parse schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return fmt.Errorf("add schema resource %s: %w", name, err)
	}
	if _, err := c.Compile(name); err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}
	return nil
}
