// Package schema validates generated Kiro CLI agent configurations against the
// embedded agent JSON schema.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/multierr"
)

//go:embed agent.schema.json
var agentSchema []byte

// AgentSchema returns a copy of the embedded agent schema document.
func AgentSchema() []byte {
	out := make([]byte, len(agentSchema))
	copy(out, agentSchema)
	return out
}

// Validator checks documents against one compiled schema. Build it once and
// hand it to whatever needs it.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles the embedded agent schema.
func New() (*Validator, error) {
	return NewFromBytes(agentSchema)
}

// NewFromBytes compiles an arbitrary JSON schema document.
func NewFromBytes(doc []byte) (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Validate checks doc (any JSON-marshalable value). It returns nil when valid
// and a *ValidationError carrying every field failure otherwise.
func (v *Validator) Validate(doc any) error {
	res, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate document: %w", err)
	}
	if res.Valid() {
		return nil
	}

	var errs error
	for _, re := range res.Errors() {
		errs = multierr.Append(errs, &FieldError{Field: re.Field(), Message: re.Description()})
	}
	return &ValidationError{err: errs}
}

// FieldError is one schema violation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError aggregates all field errors of one validation pass.
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0)
	for _, fe := range e.Fields() {
		parts = append(parts, fe.Error())
	}
	return fmt.Sprintf("schema validation failed (%d errors): %s", len(parts), strings.Join(parts, "; "))
}

// Errors exposes the individual failures; multierr.Errors understands it.
func (e *ValidationError) Errors() []error {
	return multierr.Errors(e.err)
}

// Fields returns the field errors in schema-report order.
func (e *ValidationError) Fields() []*FieldError {
	var out []*FieldError
	for _, err := range multierr.Errors(e.err) {
		if fe, ok := err.(*FieldError); ok {
			out = append(out, fe)
		}
	}
	return out
}
