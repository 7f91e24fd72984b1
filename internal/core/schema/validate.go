package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/avelinsk/finpaper/internal/core/domain"
)

// FieldError names the offending field so callers can treat validation
// failures as a structured-output contract violation, not just a
// boolean reject.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ValidationError struct {
	DocumentType domain.DocumentType
	Fields       []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Path, f.Message))
	}
	return fmt.Sprintf("%s payload invalid: %s", e.DocumentType, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

// Validate checks raw against the schema for t, applies documented
// defaults, and decodes the payload into its tagged variant.
func (r *Registry) Validate(t domain.DocumentType, raw []byte) (*domain.ExtractedData, error) {
	s, err := r.ExtractionSchema(t)
	if err != nil {
		return nil, err
	}
	if err := validateAgainst(t, s, raw); err != nil {
		return nil, err
	}
	withDefaults, err := applyDefaults(t, raw)
	if err != nil {
		return nil, err
	}
	return domain.DecodeExtractedData(t, withDefaults)
}

// ValidateRouter checks the classification stage's output.
func (r *Registry) ValidateRouter(raw []byte) (domain.Classification, error) {
	if err := validateAgainst("router", r.router, raw); err != nil {
		return domain.Classification{}, err
	}
	var c domain.Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Classification{}, fmt.Errorf("decode router output: %w", err)
	}
	return c, nil
}

func validateAgainst(t domain.DocumentType, schemaMap map[string]any, raw []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal %s schema: %w", t, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add %s schema: %w", t, err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile %s schema: %w", t, err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return &ValidationError{
			DocumentType: t,
			Fields:       []FieldError{{Path: "/", Message: "payload is not valid JSON: " + err.Error()}},
		}
	}
	if err := compiled.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{DocumentType: t, Fields: flatten(ve)}
		}
		return fmt.Errorf("validate %s payload: %w", t, err)
	}
	return nil
}

// flatten walks to leaf causes; intermediate nodes repeat the failure
// without naming the field.
func flatten(ve *jsonschema.ValidationError) []FieldError {
	if len(ve.Causes) == 0 {
		path := ve.InstanceLocation
		if path == "" {
			path = "/"
		}
		return []FieldError{{Path: path, Message: ve.Message}}
	}
	var out []FieldError
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}

// applyDefaults fills documented defaults on the raw payload: currency
// falls back to USD, a receipt item quantity falls back to 1. Absent
// optional fields otherwise stay absent; consumers treat them as
// unknown, never zero.
func applyDefaults(t domain.DocumentType, raw []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}

	if _, ok := m["currency"]; !ok {
		m["currency"] = "USD"
	}

	if t == domain.TypeReceipt {
		if items, ok := m["items"].([]any); ok {
			for _, it := range items {
				item, ok := it.(map[string]any)
				if !ok {
					continue
				}
				if _, ok := item["quantity"]; !ok {
					item["quantity"] = float64(1)
				}
			}
		}
	}

	return json.Marshal(m)
}
