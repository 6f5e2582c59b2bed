// Package schema holds the registry of contract fields ("extraction types")
// the orchestrator walks through. A Schema is built once at process start and
// is read-only afterwards.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrDuplicateField is returned when two fields share a name.
	ErrDuplicateField = errors.New("schema: duplicate field name")

	// ErrEmptyFieldName is returned for a field with a blank name.
	ErrEmptyFieldName = errors.New("schema: empty field name")

	// ErrInvalidCategory is returned for an unknown category value.
	ErrInvalidCategory = errors.New("schema: invalid field category")
)

// Category partitions fields by where their value usually lives.
type Category string

const (
	// Standard fields may be anywhere in the contract.
	Standard Category = "standard"
	// Metadata fields are document-header facts (parties, type, template)
	// expected near the start of the document.
	Metadata Category = "metadata"
)

// Field describes one contract attribute to extract.
type Field struct {
	Name     string   `json:"name"`
	Guidance []string `json:"guidance,omitempty"`
	Category Category `json:"category,omitempty"`

	// Instruction optionally replaces the generated one-line instruction in
	// the sectioned prompt.
	Instruction string `json:"instruction,omitempty"`
}

// IsMetadata reports whether the field is a document-header field.
func (f Field) IsMetadata() bool { return f.Category == Metadata }

// HasGuidance reports whether the field carries at least one non-blank
// guidance phrase.
func (f Field) HasGuidance() bool {
	for _, g := range f.Guidance {
		if strings.TrimSpace(g) != "" {
			return true
		}
	}
	return false
}

// Schema is an ordered, deduplicated set of fields.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// New validates fields and returns a schema preserving their order.
// A zero Category defaults to Standard.
func New(name string, fields ...Field) (*Schema, error) {
	s := &Schema{
		name:   name,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, fmt.Errorf("%w: position %d", ErrEmptyFieldName, i)
		}
		switch f.Category {
		case "":
			f.Category = Standard
		case Standard, Metadata:
		default:
			return nil, fmt.Errorf("%w: %q on field %q", ErrInvalidCategory, f.Category, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		f.Guidance = append([]string(nil), f.Guidance...)
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustNew is like New but panics on error. Used for the built-in catalogs.
func MustNew(name string, fields ...Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// document is the on-disk JSON shape accepted by Load.
type document struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Load reads a schema from JSON of the form
//
//	{"name": "...", "fields": [{"name": "...", "guidance": [...], "category": "metadata"}]}
func Load(r io.Reader) (*Schema, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	if doc.Name == "" {
		doc.Name = "custom"
	}
	return New(doc.Name, doc.Fields...)
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the fields in processing order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Guided reports whether any field carries guidance phrases.
func (s *Schema) Guided() bool {
	for _, f := range s.fields {
		if f.HasGuidance() {
			return true
		}
	}
	return false
}

// Metadata returns the metadata fields in schema order.
func (s *Schema) Metadata() []Field { return s.filter(Metadata) }

// Standard returns the standard fields in schema order.
func (s *Schema) Standard() []Field { return s.filter(Standard) }

func (s *Schema) filter(c Category) []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

// Unguide returns a copy of s with every guidance phrase removed. Used when
// the full document is always supplied as context.
func (s *Schema) Unguide() *Schema {
	fields := s.Fields()
	for i := range fields {
		fields[i].Guidance = nil
	}
	return MustNew(s.name+"-unguided", fields...)
}
