package search

import "github.com/BRO3886/opensearch-resource-store/internal/types"

func articlesSchema() *types.Schema {
	return &types.Schema{
		Resource: "articles",
		Attributes: map[string]types.Attribute{
			"id":      types.Scalar(types.KindString),
			"type":    types.Scalar(types.KindString),
			"title":   types.Scalar(types.KindString),
			"views":   types.Scalar(types.KindNumber),
			"draft":   types.Scalar(types.KindBoolean),
			"created": types.Scalar(types.KindDate),
			"extra":   types.Scalar(types.KindObject),
			"meta":    types.Scalar(types.KindMeta),
			"author":  types.Relationship("people", false),
			"tags":    types.Relationship("tags", true),
		},
	}
}
