// Package schemas validates extracted model output against embedded JSON
// Schema definitions before it is trusted by the pipeline.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed defs/*.json
var defsFS embed.FS

// Well-known schema names, matching files under defs/.
const (
	Requirement  = "requirement"
	CodeFragment = "code_fragment"
	ImagePrompt  = "image_prompt"
)

var (
	mu       sync.Mutex
	compiled = map[string]*gojsonschema.Schema{}
)

func schema(name string) (*gojsonschema.Schema, error) {
	mu.Lock()
	defer mu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}

	raw, err := defsFS.ReadFile("defs/" + name + ".json")
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "unknown schema", Cause: err}
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &SchemaLoadError{Name: name, Message: "schema does not compile", Cause: err}
	}

	compiled[name] = s
	return s, nil
}

// Validate checks a JSON document against the named embedded schema.
// A failing document yields a *ValidationError listing every offending field.
func Validate(name string, doc []byte) error {
	s, err := schema(name)
	if err != nil {
		return err
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &SchemaLoadError{Name: name, Message: "document could not be checked", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{
		Schema: name,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return verr
}

// ValidationError reports every field of a document that failed its schema.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError is a single validation failure at a specific field path.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "document failed %s schema:", e.Schema)
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, " %s: %s;", fe.Field, fe.Message)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// SchemaLoadError reports a problem with the schema itself rather than the
// document under test.
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error { return e.Cause }
