package corpus

import (
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/xkilldash9x/finding-dedup/internal/config"
)

// ErrMissingField is returned when a required field is absent from a finding.
var ErrMissingField = errors.New("missing field")

// MissingFieldError names the field and finding that triggered ErrMissingField.
type MissingFieldError struct {
	Field     string
	FindingID int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("cannot find field `%s` for finding ID `%d`", e.Field, e.FindingID)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// Format selects which fields of which tool make up the text of a finding.
type Format struct {
	Name      string
	Separator string
	Tools     []ToolFields
}

// ToolFields lists, in order, the fields concatenated for one tool's findings.
type ToolFields struct {
	Tool     string
	Fields   []FieldSpec
	Required bool
}

// FieldSpec is one field of a finding body. Path, when set, is a gjson path
// evaluated against the field's JSON value; Transform names a registered
// transform applied to the result.
type FieldSpec struct {
	Name      string
	Path      string
	Transform string
}

// FormatFromConfig converts a configured format, rejecting unknown transforms.
func FormatFromConfig(cfg config.FormatConfig) (Format, error) {
	f := Format{Name: cfg.Name, Separator: cfg.Separator}
	for _, tc := range cfg.Tools {
		tf := ToolFields{Tool: tc.Tool, Required: tc.Required}
		for _, fc := range tc.Fields {
			if _, err := lookupTransform(fc.Transform); err != nil {
				return Format{}, fmt.Errorf("format %q, tool %q, field %q: %w", cfg.Name, tc.Tool, fc.Name, err)
			}
			tf.Fields = append(tf.Fields, FieldSpec{Name: fc.Name, Path: fc.Path, Transform: fc.Transform})
		}
		f.Tools = append(f.Tools, tf)
	}
	return f, nil
}

// Entry renders one finding body under the tool's field selection. Each
// present field contributes its value followed by the separator.
func (t ToolFields) Entry(findingID int, body map[string]json.RawMessage, separator string) (string, error) {
	var entry string
	for _, field := range t.Fields {
		value, ok := field.extract(body)
		if !ok {
			if t.Required {
				return "", &MissingFieldError{Field: field.Name, FindingID: findingID}
			}
			continue
		}
		entry += value + separator
	}
	return entry, nil
}

func (f FieldSpec) extract(body map[string]json.RawMessage) (string, bool) {
	raw, ok := body[f.Name]
	if !ok {
		return "", false
	}
	result := gjson.ParseBytes(raw)
	if f.Path != "" {
		result = result.Get(f.Path)
		if !result.Exists() {
			return "", false
		}
	}
	// Unknown names were rejected when the format was built.
	transform, _ := lookupTransform(f.Transform)
	return transform(result), true
}
