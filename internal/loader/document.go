// Package loader reads YAML ontology documents: prefixes, entity
// declarations, facts, axioms, rules and queries.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is one YAML file. Names are prefixed names, unprefixed names in
// the default namespace, or bracketed IRIs.
//
//	prefixes:
//	  "": http://example.org/family#
//	classes: [Person, Man]
//	object_properties: [hasParent]
//	data_properties: [hasAge]
//	individuals: [fred, bob]
//	labels: {fred: Fred}
//	facts:
//	  - Man(fred)
//	  - hasParent(fred, bob)
//	  - hasAge(fred, 40)
//	axioms:
//	  - {kind: subclass_of, subject: Man, object: Person}
//	  - {kind: transitive, subject: hasAncestor}
//	rules:
//	  - name: grandparent
//	    text: hasParent(?x, ?y) ^ hasParent(?y, ?z) -> hasGrandparent(?x, ?z)
//	queries:
//	  - name: people
//	    text: Person(?p) -> sqwrl:select(?p)
type Document struct {
	// Prefixes maps labels to namespaces. The empty label sets the default.
	Prefixes         map[string]string `yaml:"prefixes"`
	Classes          []string          `yaml:"classes"`
	ObjectProperties []string          `yaml:"object_properties"`
	DataProperties   []string          `yaml:"data_properties"`
	Individuals      []string          `yaml:"individuals"`
	Labels           map[string]string `yaml:"labels"`
	Facts            []string          `yaml:"facts"`
	Axioms           []AxiomSpec       `yaml:"axioms"`
	Rules            []RuleSpec        `yaml:"rules"`
	Queries          []RuleSpec        `yaml:"queries"`

	// Path is the file the document was read from, if any.
	Path string `yaml:"-"`
}

// AxiomSpec is a structural axiom. Object is empty for characteristics.
type AxiomSpec struct {
	Kind    string `yaml:"kind"`
	Subject string `yaml:"subject"`
	Object  string `yaml:"object"`
}

// RuleSpec is a rule or query in text form.
type RuleSpec struct {
	Name    string `yaml:"name"`
	Text    string `yaml:"text"`
	Comment string `yaml:"comment"`
	// Active defaults to true.
	Active *bool `yaml:"active"`
}

// IsActive reports whether the rule starts active.
func (s RuleSpec) IsActive() bool { return s.Active == nil || *s.Active }

// Decode reads one document. Unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	doc := &Document{}
	if err := dec.Decode(doc); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// ReadFile decodes the document at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}
