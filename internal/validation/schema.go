// Package validation enforces the closed shapes of Expense records and task
// classifications with JSON Schema (draft-07) documents evaluated by
// gojsonschema. The enumerations in the schemas are built from the domain
// package so the two never drift apart.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tbourn/go-expense-assistant/internal/domain"
)

// ErrInvalid matches every *ValidationError via errors.Is.
var ErrInvalid = errors.New("validation failed")

// FieldError describes one offending field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationError lists every field that violated the target shape.
type ValidationError struct {
	Shape  string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Shape, strings.Join(parts, "; "))
}

// Is lets callers test with errors.Is(err, ErrInvalid).
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// FieldNames returns the offending field paths, sorted and de-duplicated.
func (e *ValidationError) FieldNames() []string {
	seen := make(map[string]struct{}, len(e.Fields))
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := seen[f.Field]; ok {
			continue
		}
		seen[f.Field] = struct{}{}
		out = append(out, f.Field)
	}
	sort.Strings(out)
	return out
}

var (
	expenseSchema        = mustSchema(expenseDoc())
	classificationSchema = mustSchema(classificationDoc())
)

// ValidateExpense checks a decoded expense document.
func ValidateExpense(doc map[string]any) error {
	return validate("expense", expenseSchema, doc)
}

// ValidateClassification checks a decoded classification document.
func ValidateClassification(doc map[string]any) error {
	return validate("classification", classificationSchema, doc)
}

// CheckExpense validates an Expense value before it is persisted.
func CheckExpense(e *domain.Expense) error {
	if e == nil {
		return &ValidationError{Shape: "expense", Fields: []FieldError{{Field: rootField, Message: "expense is nil", Code: "required"}}}
	}
	return ValidateExpense(map[string]any{
		"id":             e.ID,
		"user_id":        e.UserID,
		"amount":         e.Amount,
		"category":       string(e.Category),
		"description":    e.Description,
		"payment_method": string(e.PaymentMethod),
		"date":           e.Date.Format(time.RFC3339Nano),
	})
}

// DecodeClassification repairs, validates and decodes a classification
// document. The only repair is dropping null-valued parameters, which the
// model emits to mean "absent".
func DecodeClassification(doc map[string]any) (*domain.TaskClassification, error) {
	Normalize(doc)
	if err := ValidateClassification(doc); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode classification: %w", err)
	}
	var tc domain.TaskClassification
	if err := json.Unmarshal(raw, &tc); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if tc.Tables == nil {
		tc.Tables = []domain.Table{}
	}
	return &tc, nil
}

// Normalize removes null parameters (and a null parameters object) in place.
func Normalize(doc map[string]any) {
	p, ok := doc["parameters"]
	if !ok {
		return
	}
	if p == nil {
		delete(doc, "parameters")
		return
	}
	params, ok := p.(map[string]any)
	if !ok {
		return
	}
	for k, v := range params {
		if v == nil {
			delete(params, k)
		}
	}
}

func validate(shape string, schema *gojsonschema.Schema, doc map[string]any) error {
	if doc == nil {
		doc = map[string]any{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate %s: %w", shape, err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{Shape: shape}
	for _, desc := range result.Errors() {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   fieldPath(desc),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return verr
}

// fieldPath names the offending property. Required and additional-property
// errors are reported against the parent, so the property is appended.
func fieldPath(desc gojsonschema.ResultError) string {
	field := desc.Field()
	prop, ok := desc.Details()["property"].(string)
	if !ok || prop == "" || field == prop || strings.HasSuffix(field, "."+prop) {
		return field
	}
	if field == "" || field == rootField {
		return prop
	}
	return field + "." + prop
}

const rootField = "(root)"

func mustSchema(doc map[string]any) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("validation: bad schema: %v", err))
	}
	return s
}

func expenseDoc() map[string]any {
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
		"required": []any{
			"id", "user_id", "amount", "category", "description", "payment_method", "date",
		},
		"properties": map[string]any{
			"id":             map[string]any{"type": "string", "minLength": 1},
			"user_id":        map[string]any{"type": "string", "minLength": 1},
			"amount":         map[string]any{"type": "number", "exclusiveMinimum": 0},
			"category":       map[string]any{"type": "string", "enum": categoryEnum()},
			"description":    map[string]any{"type": "string"},
			"payment_method": map[string]any{"type": "string", "enum": paymentEnum()},
			"date":           map[string]any{"type": "string", "format": "date-time"},
		},
	}
}

func classificationDoc() map[string]any {
	tables := make([]any, 0, len(domain.Tables))
	for _, t := range domain.Tables {
		tables = append(tables, string(t))
	}
	taskTypes := make([]any, 0, len(domain.TaskTypes))
	for _, t := range domain.TaskTypes {
		taskTypes = append(taskTypes, string(t))
	}
	actions := make([]any, 0, len(domain.Actions))
	for _, a := range domain.Actions {
		actions = append(actions, string(a))
	}
	optString := map[string]any{"type": "string"}
	optNumber := map[string]any{"type": "number"}

	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []any{"id", "task_type", "tables", "action", "time_range", "user_id", "created_at"},
		"properties": map[string]any{
			"id":         map[string]any{"type": "string", "minLength": 1},
			"task_type":  map[string]any{"type": "string", "enum": taskTypes},
			"tables":     map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": tables}},
			"action":     map[string]any{"type": "string", "enum": actions},
			"time_range": map[string]any{"type": "string"},
			"user_id":    map[string]any{"type": "string", "minLength": 1},
			"created_at": map[string]any{"type": "string", "format": "date-time"},
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":             optString,
					"category":       map[string]any{"type": "string", "enum": categoryEnum()},
					"payment_method": map[string]any{"type": "string", "enum": paymentEnum()},
					"amount":         optNumber,
					"description":    optString,
					"start_date":     optString,
					"end_date":       optString,
					"specific_date":  optString,
					"amount_min":     optNumber,
					"amount_max":     optNumber,
				},
			},
		},
	}
}

func categoryEnum() []any {
	out := make([]any, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, string(c))
	}
	return out
}

func paymentEnum() []any {
	out := make([]any, 0, len(domain.PaymentMethods))
	for _, p := range domain.PaymentMethods {
		out = append(out, string(p))
	}
	return out
}
