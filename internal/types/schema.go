package types

import (
	"fmt"
	"sort"
)

// Kind is the value type of a scalar attribute.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindDate
	// KindObject is an opaque structured value. It is never mapped.
	KindObject
	// KindMeta is structured metadata, stored as a JSON string.
	KindMeta
)

var kindNames = map[string]Kind{
	"string":  KindString,
	"number":  KindNumber,
	"boolean": KindBoolean,
	"date":    KindDate,
	"object":  KindObject,
	"meta":    KindMeta,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Relation describes the target of a relationship attribute.
type Relation struct {
	Resource string
	Many     bool
}

// Attribute is either a scalar of some Kind or a relationship to another
// resource type. Build one with Scalar or Relationship.
type Attribute struct {
	kind     Kind
	relation *Relation
}

func Scalar(kind Kind) Attribute {
	return Attribute{kind: kind}
}

func Relationship(resource string, many bool) Attribute {
	return Attribute{relation: &Relation{Resource: resource, Many: many}}
}

// ParseAttribute builds an attribute from its configuration form. typ is
// either a scalar kind name or "relationship", in which case resource names
// the related type.
func ParseAttribute(typ, resource string, many bool) (Attribute, error) {
	if typ == "relationship" {
		if resource == "" {
			return Attribute{}, fmt.Errorf("relationship attribute without resource")
		}
		return Relationship(resource, many), nil
	}
	kind, ok := kindNames[typ]
	if !ok {
		return Attribute{}, fmt.Errorf("unknown attribute type %q", typ)
	}
	return Scalar(kind), nil
}

func (a Attribute) Kind() Kind {
	return a.kind
}

// Relation reports the relationship target, if a is a relationship.
func (a Attribute) Relation() (Relation, bool) {
	if a.relation == nil {
		return Relation{}, false
	}
	return *a.relation, true
}

func (a Attribute) IsRelationship() bool {
	return a.relation != nil
}

// Schema is the attribute layout of one resource type. It is treated as
// read-only once handed to a store.
type Schema struct {
	Resource   string
	Attributes map[string]Attribute
	Examples   []Document
}

func (s *Schema) Attribute(name string) (Attribute, bool) {
	a, ok := s.Attributes[name]
	return a, ok
}

// Names returns the attribute names in lexical order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Attributes))
	for name := range s.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
