package tool

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileSchema compiles a JSON Schema document (as a string) into a
// validator, under the given identifier (used only for compiler error
// messages and $ref resolution).
func CompileSchema(id, schemaJSON string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(id)
}
