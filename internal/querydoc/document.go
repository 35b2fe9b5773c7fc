package querydoc

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is one query.
type Document struct {
	// Name identifies the query in reports and golden files.
	Name string `yaml:"name"`

	// Description is free text.
	Description string `yaml:"description,omitempty"`

	Pipeline `yaml:",inline"`

	// GroupBy optionally groups the final sequence.
	GroupBy *GroupBySpec `yaml:"group_by,omitempty"`
}

// Pipeline is a source followed by steps.
type Pipeline struct {
	// Self starts a sub-pipeline from the enclosing pipeline at the step
	// where it is attached. Invalid at the top level.
	Self bool `yaml:"self,omitempty"`

	From  *From  `yaml:"from,omitempty"`
	Steps []Step `yaml:"steps,omitempty"`
}

// From is a leaf source. Exactly one of its fields is set.
type From struct {
	// Type selects nodes deriving from any of the types.
	Type []string `yaml:"type,omitempty"`

	// Namespace scopes Type (or Everything) to a namespace designator.
	Namespace string `yaml:"namespace,omitempty"`

	// Using lists node identifiers. An entry ending in a "*" namespace
	// component ("chars:*") selects the nodes directly in that namespace.
	Using []string `yaml:"using,omitempty"`

	// Values lists literal values.
	Values []any `yaml:"values,omitempty"`

	// Everything selects every node.
	Everything bool `yaml:"everything,omitempty"`
}

// Step is one operator. Exactly one field is set.
type Step struct {
	Like     *LikeSpec      `yaml:"like,omitempty"`
	Only     *OnlySpec      `yaml:"only,omitempty"`
	Where    *PredicateSpec `yaml:"where,omitempty"`
	WhereNot *PredicateSpec `yaml:"where_not,omitempty"`
	Having   string         `yaml:"having,omitempty"`
	Get      TransformSpec  `yaml:"get,omitempty"`
	Append   TransformSpec  `yaml:"append,omitempty"`
	Distinct bool           `yaml:"distinct,omitempty"`
	Short    bool           `yaml:"short,omitempty"`
	UUID     bool           `yaml:"uuid,omitempty"`

	Union               *Pipeline `yaml:"union,omitempty"`
	Difference          *Pipeline `yaml:"difference,omitempty"`
	Intersection        *Pipeline `yaml:"intersection,omitempty"`
	SymmetricDifference *Pipeline `yaml:"symmetric_difference,omitempty"`

	Join []JoinSpec `yaml:"join,omitempty"`
}

// LikeSpec is a pattern filter. A bare scalar is the pattern.
type LikeSpec struct {
	Pattern string `yaml:"pattern"`
	Exact   bool   `yaml:"exact,omitempty"`
}

// UnmarshalYAML accepts "like: persp" as well as the mapping form.
func (l *LikeSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		l.Pattern = n.Value
		return nil
	}
	type plain LikeSpec
	return decodeStrict(n, (*plain)(l))
}

// OnlySpec is a type and namespace filter.
type OnlySpec struct {
	Types     []string `yaml:"types,omitempty"`
	Namespace string   `yaml:"namespace,omitempty"`
}

// PredicateSpec is a predicate tree node. Exactly one form is used:
// a comparison (attr, op, value), has, has_attr, not or and.
type PredicateSpec struct {
	Attr  string `yaml:"attr,omitempty"`
	Op    string `yaml:"op,omitempty"`
	Value any    `yaml:"value,omitempty"`

	Has     string          `yaml:"has,omitempty"`
	HasAttr string          `yaml:"has_attr,omitempty"`
	Not     *PredicateSpec  `yaml:"not,omitempty"`
	And     []PredicateSpec `yaml:"and,omitempty"`
}

// TransformSpec is a transform designator: a relationship name, "values",
// "node_type", "attribute(name)" or the mapping {attribute: name}.
type TransformSpec string

// UnmarshalYAML accepts the scalar and the {attribute: name} forms.
func (t *TransformSpec) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*t = TransformSpec(n.Value)
		return nil
	case yaml.MappingNode:
		if len(n.Content) == 2 && n.Content[0].Value == "attribute" && n.Content[1].Kind == yaml.ScalarNode {
			*t = TransformSpec("attribute(" + n.Content[1].Value + ")")
			return nil
		}
	}
	return fmt.Errorf("line %d: transform must be a name or {attribute: name}", n.Line)
}

// JoinSpec is one named join field.
type JoinSpec struct {
	As       string `yaml:"as"`
	Pipeline `yaml:",inline"`
}

// GroupBySpec selects the grouping key. Exactly one field is set.
type GroupBySpec struct {
	// Field groups join rows by field name ("index" for the row index).
	Field string `yaml:"field,omitempty"`

	// Index groups join rows by joined field position.
	Index *int `yaml:"index,omitempty"`

	// Attr groups nodes by an attribute value.
	Attr string `yaml:"attr,omitempty"`
}

// Load reads and decodes a document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a document, rejecting unknown fields.
func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one document from r, rejecting unknown fields.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return &doc, nil
}

// decodeStrict decodes a node with unknown-field checking. Custom
// unmarshalers receive nodes without the outer decoder's settings, so the
// node is re-encoded and decoded again.
func decodeStrict(n *yaml.Node, out any) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	return nil
}
