package search

import (
	"context"

	"github.com/BRO3886/opensearch-resource-store/internal/types"
)

// Store persists and queries the resources of one type. Initialise must
// return before any other method is called.
type Store interface {
	Initialise(ctx context.Context, schema *types.Schema) error
	Create(ctx context.Context, req types.Request, doc types.Document) (types.Document, error)
	Find(ctx context.Context, req types.Request) (types.Document, error)
	Search(ctx context.Context, req types.Request) ([]types.Document, int, error)
	Update(ctx context.Context, req types.Request, partial types.Document) (types.Document, error)
	Delete(ctx context.Context, req types.Request) (*DeleteResult, error)
	Populate(ctx context.Context) error
}

// DeleteResult is the engine's answer to a document deletion.
type DeleteResult struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Version int    `json:"_version"`
	Result  string `json:"result"`
}
