package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BRO3886/opensearch-resource-store/internal/errors"
	"github.com/BRO3886/opensearch-resource-store/internal/search"
	"github.com/BRO3886/opensearch-resource-store/internal/types"
)

// Applier replays change events into the stores they belong to, keyed by
// resource type.
type Applier struct {
	stores map[string]search.Store
}

func NewApplier(stores map[string]search.Store) *Applier {
	return &Applier{stores: stores}
}

// Handle applies one encoded event. Events for unknown resource types are
// skipped. Replaying an event is idempotent: an update of a missing resource
// creates it and deleting a missing resource succeeds.
func (a *Applier) Handle(ctx context.Context, data []byte) error {
	var event types.Event
	if err := json.Unmarshal(data, &event); err != nil {
		log.Errorf("[feed] error unmarshalling event: %v", err)
		return err
	}
	if err := event.Validate(); err != nil {
		log.Errorf("[feed] invalid event: %v", err)
		return err
	}

	store, ok := a.stores[event.Type]
	if !ok {
		log.Warnf("[feed] no store for resource type %q, skipping %s of %s", event.Type, event.Op, event.ID)
		return nil
	}

	req := event.Request()
	switch event.Op {
	case types.OpCreate:
		_, err := store.Create(ctx, req, withID(event))
		return err
	case types.OpUpdate:
		_, err := store.Update(ctx, req, event.Resource)
		if errors.IsNotFound(err) {
			log.Infof("[feed] %s/%s not found, creating it", event.Type, event.ID)
			_, err = store.Create(ctx, req, withID(event))
		}
		return err
	case types.OpDelete:
		_, err := store.Delete(ctx, req)
		if errors.IsNotFound(err) {
			log.Debugf("[feed] %s/%s already deleted", event.Type, event.ID)
			return nil
		}
		return err
	default:
		return fmt.Errorf("unsupported op %q", event.Op)
	}
}

func withID(event types.Event) types.Document {
	doc := event.Resource.Clone()
	if event.ID != "" {
		doc["id"] = event.ID
	}
	return doc
}
