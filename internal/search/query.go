package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BRO3886/opensearch-resource-store/internal/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "search")

// Clause is a fragment of the query DSL.
type Clause map[string]any

// Payload is the body of a search or count request.
type Payload struct {
	Query Clause   `json:"query"`
	Sort  []Clause `json:"sort,omitempty"`
	From  *int     `json:"from,omitempty"`
	Size  *int     `json:"size,omitempty"`
}

// BuildQuery translates req into a search body: a bool query constraining
// the resource type and relationship ids, with the filters as a lucene
// expression, followed by the optional sort and page sections.
func BuildQuery(schema *types.Schema, req types.Request) Payload {
	p := BuildCount(schema, req)

	if s, ok := sortClause(schema, req.Sort); ok {
		p.Sort = []Clause{s}
	}

	if req.Page != nil {
		from, size := req.Page.Offset, req.Page.Limit
		p.From = &from
		p.Size = &size
	}

	return p
}

// BuildCount translates req into a count body. It carries the same query as
// BuildQuery and nothing else, which is all the count API accepts.
func BuildCount(schema *types.Schema, req types.Request) Payload {
	resourceType := req.Type
	if resourceType == "" {
		resourceType = schema.Resource
	}

	filters := []Clause{term("type", resourceType)}
	for _, name := range sortedKeys(req.Relationships) {
		attr, ok := schema.Attribute(name)
		if !ok || !attr.IsRelationship() {
			log.Debugf("[query] dropping relationship constraint on %q", name)
			continue
		}
		filters = append(filters, term(name+".id", req.Relationships[name]))
	}

	must := Clause{"match_all": Clause{}}
	if q := FilterString(schema, req.Filter); q != "" {
		must = Clause{"query_string": Clause{"query": q}}
	}

	return Payload{
		Query: Clause{"bool": Clause{
			"filter": filters,
			"must":   []Clause{must},
		}},
	}
}

// FilterString renders filter as a lucene expression, one parenthesised
// group per attribute joined with AND, alternatives joined with OR. Unknown
// attributes, empty values and object values are dropped. An empty result
// means nothing is left to filter on.
//
// Keyword fields (id, type and relationship ids) match the quoted value
// exactly. Other values keep their wildcards and are otherwise escaped.
func FilterString(schema *types.Schema, filter map[string]any) string {
	var groups []string

	for _, name := range sortedKeys(filter) {
		field, values, exact, ok := filterField(schema, name, filter[name])
		if !ok {
			continue
		}

		var terms []string
		for _, v := range values {
			v = stripMarker(v)
			if exact && v != "" {
				terms = append(terms, quote(v))
			} else if v = escapeTerms(v); v != "" {
				terms = append(terms, v)
			}
		}
		if len(terms) == 0 {
			continue
		}

		groups = append(groups, field+":("+strings.Join(terms, " OR ")+")")
	}

	if len(groups) == 0 {
		return ""
	}
	return "(" + strings.Join(groups, ") AND (") + ")"
}

// filterField resolves the indexed field a filter on name targets and the
// candidate values for it.
func filterField(schema *types.Schema, name string, value any) (string, []string, bool, bool) {
	if name == "id" || name == "type" {
		return name, filterValues(value), true, true
	}

	attr, ok := schema.Attribute(name)
	if !ok {
		return "", nil, false, false
	}
	if attr.IsRelationship() {
		v, ok := scalarValue(value)
		if !ok {
			return "", nil, false, false
		}
		return name + ".id", []string{v}, true, true
	}
	return name, filterValues(value), false, true
}

func sortClause(schema *types.Schema, sortBy string) (Clause, bool) {
	if sortBy == "" {
		return nil, false
	}

	attribute, order := sortBy, "asc"
	if strings.HasPrefix(attribute, "-") {
		attribute, order = attribute[1:], "desc"
	}

	field := attribute
	switch attribute {
	case "id", "type":
	default:
		attr, ok := schema.Attribute(attribute)
		if !ok || attr.IsRelationship() {
			log.Debugf("[query] dropping sort on %q", attribute)
			return nil, false
		}
		if _, ok := fieldTypes[attr.Kind()]; !ok {
			return nil, false
		}
		field += ".raw"
	}

	return Clause{field: Clause{"order": order}}, true
}

// filterValues coerces a filter value to its list of candidate strings.
func filterValues(v any) []string {
	switch v := v.(type) {
	case []string:
		return v
	case []any:
		values := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := scalarValue(e); ok {
				values = append(values, s)
			}
		}
		return values
	default:
		if s, ok := scalarValue(v); ok {
			return []string{s}
		}
		return nil
	}
}

func scalarValue(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}

// stripMarker removes the exact (":") or fuzzy ("~") match marker.
func stripMarker(v string) string {
	if v != "" && (v[0] == ':' || v[0] == '~') {
		return v[1:]
	}
	return v
}

var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// reservedEscaper escapes the query_string syntax characters except the
// wildcards. < and > cannot be escaped and are removed.
var reservedEscaper = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `=`, `\=`, `&`, `\&`, `|`, `\|`,
	`!`, `\!`, `(`, `\(`, `)`, `\)`, `{`, `\{`, `}`, `\}`, `[`, `\[`,
	`]`, `\]`, `^`, `\^`, `"`, `\"`, `~`, `\~`, `:`, `\:`, `/`, `\/`,
	`<`, ``, `>`, ``,
)

// escapeTerms escapes v for use as free terms. Operator words are lowered so
// they are searched for instead of combining the terms around them.
func escapeTerms(v string) string {
	words := strings.Fields(reservedEscaper.Replace(v))
	for i, w := range words {
		switch w {
		case "AND", "OR", "NOT":
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}

func quote(v string) string {
	return `"` + phraseEscaper.Replace(v) + `"`
}

func term(field, value string) Clause {
	return Clause{"term": Clause{field: value}}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
