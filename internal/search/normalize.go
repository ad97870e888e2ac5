package search

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BRO3886/opensearch-resource-store/internal/errors"
	"github.com/BRO3886/opensearch-resource-store/internal/types"
)

// GetResponse is the engine envelope of a get-by-id call.
type GetResponse struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Found  bool           `json:"found"`
	Source types.Document `json:"_source"`
}

// Hit is a single search match.
type Hit struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Source types.Document `json:"_source"`
}

// HitList decodes either a list of hits or a single bare hit.
type HitList []Hit

func (l *HitList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var h Hit
		if err := json.Unmarshal(data, &h); err != nil {
			return err
		}
		*l = HitList{h}
		return nil
	}
	var hits []Hit
	if err := json.Unmarshal(data, &hits); err != nil {
		return err
	}
	*l = hits
	return nil
}

// Total decodes hits.total in both its object and legacy numeric forms.
type Total struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

func (t *Total) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		return json.Unmarshal(data, &t.Value)
	}
	type total Total
	return json.Unmarshal(data, (*total)(t))
}

// SearchResponse is the engine envelope of a search call.
type SearchResponse struct {
	Hits struct {
		Total Total   `json:"total"`
		Hits  HitList `json:"hits"`
	} `json:"hits"`
}

// CountResponse is the engine envelope of a count call.
type CountResponse struct {
	Count int `json:"count"`
}

// NormalizeGet returns the canonical document held by a get response, or a
// not-found failure when the engine has none.
func NormalizeGet(schema *types.Schema, id string, resp *GetResponse) (types.Document, error) {
	if resp == nil || !resp.Found || resp.Source == nil {
		return nil, errors.NewNotFound("Requested resource does not exist", schema.Resource, id)
	}
	return normalize(schema, resp.ID, resp.Source)
}

// NormalizeSearch returns the canonical documents of every hit.
func NormalizeSearch(schema *types.Schema, resp *SearchResponse) ([]types.Document, error) {
	docs := make([]types.Document, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		doc, err := normalize(schema, hit.ID, hit.Source)
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", hit.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func normalize(schema *types.Schema, id string, source types.Document) (types.Document, error) {
	doc, err := RestoreFromStore(schema, source)
	if err != nil {
		return nil, err
	}
	if doc.ID() == "" {
		doc["id"] = id
	}
	if doc.Type() == "" {
		doc["type"] = schema.Resource
	}
	return doc, nil
}

// PrepareForStore returns a copy of doc whose metadata values, both meta
// attributes and the meta of relationship references, are JSON strings.
func PrepareForStore(schema *types.Schema, doc types.Document) (types.Document, error) {
	return convertMeta(schema, doc, encodeMeta)
}

// RestoreFromStore reverses PrepareForStore.
func RestoreFromStore(schema *types.Schema, doc types.Document) (types.Document, error) {
	return convertMeta(schema, doc, decodeMeta)
}

func convertMeta(schema *types.Schema, doc types.Document, convert func(any) (any, error)) (types.Document, error) {
	out := doc.Clone()

	for name, attr := range schema.Attributes {
		v, ok := out[name]
		if !ok || v == nil {
			continue
		}

		if attr.IsRelationship() {
			converted, err := convertReferences(v, convert)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = converted
			continue
		}

		if attr.Kind() != types.KindMeta {
			continue
		}
		converted, err := convert(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = converted
	}

	return out, nil
}

// convertReferences converts the "meta" member of one reference or of each
// reference in a list.
func convertReferences(v any, convert func(any) (any, error)) (any, error) {
	switch v := v.(type) {
	case map[string]any:
		return convertReference(v, convert)
	case types.Document:
		return convertReference(v, convert)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			ref, ok := e.(map[string]any)
			if !ok {
				out[i] = e
				continue
			}
			converted, err := convertReference(ref, convert)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, ref := range v {
			converted, err := convertReference(ref, convert)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	default:
		return v, nil
	}
}

func convertReference(ref map[string]any, convert func(any) (any, error)) (map[string]any, error) {
	meta, ok := ref["meta"]
	if !ok || meta == nil {
		return ref, nil
	}
	converted, err := convert(meta)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(ref))
	for k, v := range ref {
		out[k] = v
	}
	out["meta"] = converted
	return out, nil
}

func encodeMeta(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding meta: %w", err)
	}
	return string(b), nil
}

func decodeMeta(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	var meta any
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		log.Warnf("[normalize] meta is not JSON, keeping it as stored: %v", err)
		return s, nil
	}
	return meta, nil
}
