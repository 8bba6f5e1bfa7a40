package report

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"framescope/internal/model"
)

var reflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// Schema is the JSON schema of report.json.
func Schema() *jsonschema.Schema {
	return reflector.Reflect(&model.Report{})
}

func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
