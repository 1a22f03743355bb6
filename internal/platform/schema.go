package platform

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"autopilot/internal/layout"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidLayout is returned when a layout document fails validation.
var ErrInvalidLayout = errors.New("invalid layout")

//go:embed layout.schema.json
var layoutSchemaJSON string

var layoutSchema = jsonschema.MustCompileString("layout.schema.json", layoutSchemaJSON)

// DecodeLayout validates raw against the layout schema and decodes it.
func DecodeLayout(raw []byte) (layout.Layout, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return layout.Layout{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if err := layoutSchema.Validate(doc); err != nil {
		return layout.Layout{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	var l layout.Layout
	if err := json.Unmarshal(raw, &l); err != nil {
		return layout.Layout{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	return l, nil
}
