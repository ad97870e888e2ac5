package opensearch

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/BRO3886/opensearch-resource-store/internal/config"
	"github.com/BRO3886/opensearch-resource-store/internal/errors"
	"github.com/BRO3886/opensearch-resource-store/internal/search"
	"github.com/BRO3886/opensearch-resource-store/internal/types"
	"github.com/google/uuid"
	external "github.com/opensearch-project/opensearch-go/v2"
	api "github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("component", "opensearch")

// Notifier receives the changes a store has written.
type Notifier interface {
	Notify(ctx context.Context, event types.Event) error
}

type Option func(*Store)

// WithClient shares an existing client instead of dialing a new one.
func WithClient(client *external.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// Store keeps the resources of one type in an index of their own.
type Store struct {
	cfg      *config.Config
	client   *external.Client
	notifier Notifier
	schema   *types.Schema
	index    string
	ready    atomic.Bool
}

var _ search.Store = (*Store)(nil)

func New(c *config.Config, opts ...Option) *Store {
	s := &Store{cfg: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialise connects to the engine, creates the index if it is missing and
// marks the store ready. Nothing else may be called before it returns.
func (s *Store) Initialise(ctx context.Context, schema *types.Schema) error {
	if s.client == nil {
		client, err := NewClient(s.cfg)
		if err != nil {
			return errors.NewUnexpected("error creating opensearch client", err)
		}
		s.client = client
	}

	if err := s.do(ctx, api.InfoRequest{}, nil); err != nil {
		return errors.NewUnexpected("error connecting to opensearch", err)
	}

	s.schema = schema
	s.index = IndexName(s.cfg.Opensearch.Index.Prefix, schema.Resource)

	if err := s.checkAndCreateIndex(ctx); err != nil {
		return err
	}

	s.ready.Store(true)
	log.Infof("[opensearch] %s ready on index %s", schema.Resource, s.index)
	return nil
}

func (s *Store) Ready() bool {
	return s.ready.Load()
}

func (s *Store) Index() string {
	return s.index
}

// Create stores doc, assigning it an id when it has none.
func (s *Store) Create(ctx context.Context, req types.Request, doc types.Document) (types.Document, error) {
	if !s.Ready() {
		return nil, errors.ErrNotReady
	}

	doc = doc.Clone()
	if doc.ID() == "" {
		doc["id"] = uuid.NewString()
	}
	if doc.Type() == "" {
		doc["type"] = s.schema.Resource
	}

	if err := s.put(ctx, doc); err != nil {
		return nil, errors.NewCreateFailed(s.resourceType(req), doc.ID(), err)
	}

	s.notify(ctx, types.OpCreate, doc)
	return doc, nil
}

func (s *Store) Find(ctx context.Context, req types.Request) (types.Document, error) {
	if !s.Ready() {
		return nil, errors.ErrNotReady
	}

	var resp search.GetResponse
	err := s.do(ctx, api.GetRequest{
		Index:      s.index,
		DocumentID: documentID(req.ID),
	}, &resp)
	if err != nil {
		return nil, errors.NewNotFound("Requested resource does not exist", s.resourceType(req), req.ID, err)
	}

	log.Debugf("[opensearch] find %s/%s", s.index, req.ID)
	return search.NormalizeGet(s.schema, req.ID, &resp)
}

// Search runs the query and the count for req concurrently. Engine errors
// are returned as they are.
func (s *Store) Search(ctx context.Context, req types.Request) ([]types.Document, int, error) {
	if !s.Ready() {
		return nil, 0, errors.ErrNotReady
	}

	query, err := jsonBody(search.BuildQuery(s.schema, req))
	if err != nil {
		return nil, 0, err
	}
	count, err := jsonBody(search.BuildCount(s.schema, req))
	if err != nil {
		return nil, 0, err
	}

	var (
		results search.SearchResponse
		total   search.CountResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.do(gctx, api.SearchRequest{Index: []string{s.index}, Body: query}, &results)
	})
	g.Go(func() error {
		return s.do(gctx, api.CountRequest{Index: []string{s.index}, Body: count}, &total)
	})
	if err := g.Wait(); err != nil {
		log.Debugf("[opensearch] search %s: %v", s.index, err)
		return nil, 0, err
	}

	docs, err := search.NormalizeSearch(s.schema, &results)
	if err != nil {
		return nil, 0, err
	}
	return docs, total.Count, nil
}

// Update merges partial over the stored document and returns the result as
// read back from the engine.
func (s *Store) Update(ctx context.Context, req types.Request, partial types.Document) (types.Document, error) {
	const title = "Requested resource could not be updated"

	current, err := s.Find(ctx, req)
	if err != nil {
		if err == errors.ErrNotReady {
			return nil, err
		}
		return nil, errors.NewNotFound(title, s.resourceType(req), req.ID, err)
	}

	for k, v := range partial {
		if k == "id" {
			continue
		}
		current[k] = v
	}

	if err := s.put(ctx, current); err != nil {
		return nil, errors.NewNotFound(title, s.resourceType(req), req.ID, err)
	}

	s.notify(ctx, types.OpUpdate, current)
	return s.Find(ctx, req)
}

func (s *Store) Delete(ctx context.Context, req types.Request) (*search.DeleteResult, error) {
	if !s.Ready() {
		return nil, errors.ErrNotReady
	}

	var result search.DeleteResult
	err := s.do(ctx, api.DeleteRequest{
		Index:      s.index,
		DocumentID: documentID(req.ID),
		Refresh:    "true",
	}, &result)
	if err != nil {
		return nil, errors.NewNotFound("Requested resource could not be deleted", s.resourceType(req), req.ID, err)
	}

	log.Debugf("[opensearch] document deleted: %s/%s", s.index, req.ID)
	s.notify(ctx, types.OpDelete, types.Document{"id": req.ID, "type": s.schema.Resource})
	return &result, nil
}

// put indexes doc with an immediate refresh so the next read observes it.
func (s *Store) put(ctx context.Context, doc types.Document) error {
	stored, err := search.PrepareForStore(s.schema, doc)
	if err != nil {
		return err
	}
	body, err := jsonBody(stored)
	if err != nil {
		return err
	}

	return s.do(ctx, api.IndexRequest{
		Index:      s.index,
		DocumentID: documentID(doc.ID()),
		Body:       body,
		Refresh:    "true",
	}, nil)
}

func (s *Store) checkAndCreateIndex(ctx context.Context) error {
	err := s.do(ctx, api.IndicesExistsRequest{Index: []string{s.index}}, nil)
	if err == nil {
		return nil
	}
	var ee *engineError
	if !asEngineError(err, &ee) || ee.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to check index %s: %w", s.index, err)
	}
	return s.createIndex(ctx)
}

func (s *Store) createIndex(ctx context.Context) error {
	settings, err := jsonBody(search.NewIndexSettings(s.cfg.Opensearch.Index.Shards, s.cfg.Opensearch.Index.Replicas))
	if err != nil {
		return err
	}
	if err := s.do(ctx, api.IndicesCreateRequest{Index: s.index, Body: settings}, nil); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	log.Infof("[opensearch] index created: %s", s.index)

	mapping, err := jsonBody(search.GenerateMapping(s.schema))
	if err != nil {
		return err
	}
	if err := s.do(ctx, api.IndicesPutMappingRequest{Index: []string{s.index}, Body: mapping}, nil); err != nil {
		return fmt.Errorf("failed to put mapping: %w", err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, op types.Op, doc types.Document) {
	if s.notifier == nil {
		return
	}
	event := types.Event{
		Op:        op,
		Type:      s.schema.Resource,
		ID:        doc.ID(),
		TimeStamp: time.Now().UnixMilli(),
	}
	if op != types.OpDelete {
		event.Resource = doc
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Errorf("[opensearch] failed to publish %s of %s/%s: %v", op, event.Type, event.ID, err)
	}
}

func (s *Store) resourceType(req types.Request) string {
	if req.Type != "" {
		return req.Type
	}
	return s.schema.Resource
}
