package feed

import (
	"context"
	"sync"

	"github.com/BRO3886/opensearch-resource-store/internal/errors"
	"github.com/BRO3886/opensearch-resource-store/internal/search"
	"github.com/BRO3886/opensearch-resource-store/internal/types"
)

type memoryStore struct {
	resource string
	docs     map[string]types.Document
	calls    []string
}

var _ search.Store = (*memoryStore)(nil)

func newMemoryStore(resource string) *memoryStore {
	return &memoryStore{resource: resource, docs: map[string]types.Document{}}
}

func (m *memoryStore) Initialise(ctx context.Context, schema *types.Schema) error { return nil }

func (m *memoryStore) Create(ctx context.Context, req types.Request, doc types.Document) (types.Document, error) {
	m.calls = append(m.calls, "create")
	doc = doc.Clone()
	doc["type"] = m.resource
	m.docs[doc.ID()] = doc
	return doc, nil
}

func (m *memoryStore) Find(ctx context.Context, req types.Request) (types.Document, error) {
	doc, ok := m.docs[req.ID]
	if !ok {
		return nil, errors.NewNotFound("Requested resource does not exist", m.resource, req.ID)
	}
	return doc, nil
}

func (m *memoryStore) Search(ctx context.Context, req types.Request) ([]types.Document, int, error) {
	return nil, 0, nil
}

func (m *memoryStore) Update(ctx context.Context, req types.Request, partial types.Document) (types.Document, error) {
	m.calls = append(m.calls, "update")
	doc, ok := m.docs[req.ID]
	if !ok {
		return nil, errors.NewNotFound("Requested resource could not be updated", m.resource, req.ID)
	}
	for k, v := range partial {
		doc[k] = v
	}
	return doc, nil
}

func (m *memoryStore) Delete(ctx context.Context, req types.Request) (*search.DeleteResult, error) {
	m.calls = append(m.calls, "delete")
	if _, ok := m.docs[req.ID]; !ok {
		return nil, errors.NewNotFound("Requested resource could not be deleted", m.resource, req.ID)
	}
	delete(m.docs, req.ID)
	return &search.DeleteResult{ID: req.ID, Result: "deleted"}, nil
}

func (m *memoryStore) Populate(ctx context.Context) error { return nil }

type memoryQueue struct {
	mu       sync.Mutex
	messages map[string][][]byte
	err      error
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{messages: map[string][][]byte{}}
}

func (q *memoryQueue) Enqueue(ctx context.Context, topic string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages[topic] = append(q.messages[topic], data)
	return nil
}

func (q *memoryQueue) Close() error { return nil }
