package types

import "fmt"

// Document is the canonical shape of a resource: a flat attribute map that
// always carries "id" and "type".
type Document map[string]any

func (d Document) ID() string {
	return stringField(d, "id")
}

func (d Document) Type() string {
	return stringField(d, "type")
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

func stringField(d Document, key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
