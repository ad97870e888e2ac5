package opensearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BRO3886/opensearch-resource-store/internal/errors"
	"github.com/BRO3886/opensearch-resource-store/internal/search"
	"github.com/BRO3886/opensearch-resource-store/internal/types"
	"github.com/google/uuid"
	api "github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  any    `json:"error,omitempty"`
	} `json:"items"`
}

// Populate drops and recreates the index with its mapping, then loads the
// schema's example documents. Failures to drop or recreate the index are
// logged only; a failed load is returned.
func (s *Store) Populate(ctx context.Context) error {
	if !s.Ready() {
		return errors.ErrNotReady
	}

	if err := s.do(ctx, api.IndicesDeleteRequest{Index: []string{s.index}}, nil); err != nil {
		log.Warnf("[opensearch] error dropping index %s: %v", s.index, err)
	}
	if err := s.createIndex(ctx); err != nil {
		log.Warnf("[opensearch] error creating index %s: %v", s.index, err)
	}

	docs := make([]types.Document, 0, len(s.schema.Examples))
	for _, example := range s.schema.Examples {
		doc := example.Clone()
		if doc.ID() == "" {
			doc["id"] = uuid.NewString()
		}
		if doc.Type() == "" {
			doc["type"] = s.schema.Resource
		}
		docs = append(docs, doc)
	}

	if err := s.bulk(ctx, docs); err != nil {
		log.Errorf("[opensearch] error creating example resources for %s: %v", s.schema.Resource, err)
		return err
	}

	for _, doc := range docs {
		s.notify(ctx, types.OpCreate, doc)
	}
	log.Infof("[opensearch] populated %s with %d documents", s.index, len(docs))
	return nil
}

func (s *Store) bulk(ctx context.Context, docs []types.Document) error {
	if len(docs) == 0 {
		return nil
	}

	bulkReq := strings.Builder{}
	for _, doc := range docs {
		stored, err := search.PrepareForStore(s.schema, doc)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID(), err)
		}
		jsonData, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", doc.ID(), err)
		}
		action, err := json.Marshal(map[string]any{
			"index": map[string]string{"_index": s.index, "_id": doc.ID()},
		})
		if err != nil {
			return err
		}
		bulkReq.Write(action)
		bulkReq.WriteString("\n")
		bulkReq.Write(jsonData)
		bulkReq.WriteString("\n")
	}

	var resp bulkResponse
	if err := s.do(ctx, api.BulkRequest{
		Body:    strings.NewReader(bulkReq.String()),
		Refresh: "true",
	}, &resp); err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	if resp.Errors {
		var failed []string
		for _, item := range resp.Items {
			for _, result := range item {
				if result.Error != nil {
					failed = append(failed, fmt.Sprintf("%s (%d)", result.ID, result.Status))
				}
			}
		}
		return fmt.Errorf("failed to load documents: %s", strings.Join(failed, ", "))
	}
	return nil
}
