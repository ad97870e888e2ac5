package search

import "github.com/BRO3886/opensearch-resource-store/internal/types"

// Property is one field of an index mapping.
type Property struct {
	Type       string              `json:"type,omitempty"`
	Fields     map[string]Property `json:"fields,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
}

// Mapping is the body of a put-mapping call.
type Mapping struct {
	Properties map[string]Property `json:"properties"`
}

// IndexSettings is the body of an index creation call.
type IndexSettings struct {
	Settings struct {
		Index struct {
			NumberOfShards   int `json:"number_of_shards"`
			NumberOfReplicas int `json:"number_of_replicas"`
		} `json:"index"`
	} `json:"settings"`
}

func NewIndexSettings(shards, replicas int) IndexSettings {
	var s IndexSettings
	s.Settings.Index.NumberOfShards = shards
	s.Settings.Index.NumberOfReplicas = replicas
	return s
}

var fieldTypes = map[types.Kind][2]string{
	types.KindString:  {"text", "keyword"},
	types.KindNumber:  {"integer", "integer"},
	types.KindBoolean: {"boolean", "boolean"},
	types.KindDate:    {"date", "date"},
}

// GenerateMapping derives the index mapping of a resource type. Scalars are
// indexed twice: analysed under their own name and exact-match under
// "<name>.raw". Relationships become {id, type} objects. Object and meta
// attributes are left to the engine.
func GenerateMapping(schema *types.Schema) Mapping {
	m := Mapping{Properties: map[string]Property{
		"id":   {Type: "keyword"},
		"type": {Type: "keyword"},
	}}

	for name, attr := range schema.Attributes {
		if name == "id" || name == "type" {
			continue
		}

		if attr.IsRelationship() {
			m.Properties[name] = Property{Properties: map[string]Property{
				"id":   {Type: "keyword"},
				"type": {Type: "keyword"},
			}}
			continue
		}

		ft, ok := fieldTypes[attr.Kind()]
		if !ok {
			continue
		}
		m.Properties[name] = Property{
			Type:   ft[0],
			Fields: map[string]Property{"raw": {Type: ft[1]}},
		}
	}

	return m
}
