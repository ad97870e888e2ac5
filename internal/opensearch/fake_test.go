package opensearch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
)

// fakeEngine is a minimal in-memory OpenSearch: it keeps documents per index
// and answers searches with every document of the index, honouring from/size.
type fakeEngine struct {
	mu       sync.Mutex
	indices  map[string]map[string]json.RawMessage
	mappings map[string]json.RawMessage
	failures map[string]int
	refresh  []string
	server   *httptest.Server
}

func newFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	f := &fakeEngine{
		indices:  map[string]map[string]json.RawMessage{},
		mappings: map[string]json.RawMessage{},
		failures: map[string]int{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// failOn makes every request whose API endpoint (e.g. "_count") matches
// answer with status.
func (f *fakeEngine) failOn(endpoint string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[endpoint] = status
}

func (f *fakeEngine) docs(index string) map[string]json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indices[index]
}

func (f *fakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	var parts []string
	for _, p := range strings.Split(strings.Trim(r.URL.EscapedPath(), "/"), "/") {
		if p == "" {
			continue
		}
		unescaped, _ := url.PathUnescape(p)
		parts = append(parts, unescaped)
	}

	endpoint := ""
	for _, p := range parts {
		if strings.HasPrefix(p, "_") {
			endpoint = p
		}
	}
	if status, ok := f.failures[endpoint]; ok {
		writeJSON(w, status, map[string]any{"error": "injected failure", "status": status})
		return
	}

	if r.URL.Query().Get("refresh") != "" {
		f.refresh = append(f.refresh, r.Method+" "+r.URL.Path+" refresh="+r.URL.Query().Get("refresh"))
	}

	switch {
	case len(parts) == 0:
		writeJSON(w, http.StatusOK, map[string]any{
			"name":         "fake",
			"cluster_name": "fake",
			"version":      map[string]any{"distribution": "opensearch", "number": "2.11.0"},
			"tagline":      "The OpenSearch Project: https://opensearch.org/",
		})
	case len(parts) == 1 && parts[0] == "_bulk":
		f.bulk(w, r)
	case len(parts) == 1:
		f.indexAdmin(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "_mapping":
		f.mappings[parts[0]], _ = io.ReadAll(r.Body)
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
	case len(parts) == 2 && parts[1] == "_search":
		f.search(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "_count":
		writeJSON(w, http.StatusOK, map[string]any{"count": len(f.indices[parts[0]])})
	case len(parts) == 3 && parts[1] == "_doc":
		f.document(w, r, parts[0], parts[2])
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported " + r.Method + " " + r.URL.Path})
	}
}

func (f *fakeEngine) indexAdmin(w http.ResponseWriter, r *http.Request, index string) {
	_, exists := f.indices[index]
	switch r.Method {
	case http.MethodHead:
		if exists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPut:
		if exists {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "resource_already_exists_exception"}})
			return
		}
		f.indices[index] = map[string]json.RawMessage{}
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": index})
	case http.MethodDelete:
		if !exists {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"type": "index_not_found_exception"}})
			return
		}
		delete(f.indices, index)
		delete(f.mappings, index)
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeEngine) document(w http.ResponseWriter, r *http.Request, index, id string) {
	docs, exists := f.indices[index]
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		if !exists {
			docs = map[string]json.RawMessage{}
			f.indices[index] = docs
		}
		body, _ := io.ReadAll(r.Body)
		_, replaced := docs[id]
		docs[id] = body
		result, status := "created", http.StatusCreated
		if replaced {
			result, status = "updated", http.StatusOK
		}
		writeJSON(w, status, map[string]any{"_index": index, "_id": id, "result": result})
	case http.MethodGet:
		source, ok := docs[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"_index": index, "_id": id, "found": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_index": index, "_id": id, "found": true, "_source": source})
	case http.MethodDelete:
		if _, ok := docs[id]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"_index": index, "_id": id, "result": "not_found"})
			return
		}
		delete(docs, id)
		writeJSON(w, http.StatusOK, map[string]any{"_index": index, "_id": id, "_version": 2, "result": "deleted"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeEngine) search(w http.ResponseWriter, r *http.Request, index string) {
	docs, exists := f.indices[index]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"type": "index_not_found_exception"}})
		return
	}

	var body struct {
		From *int `json:"from"`
		Size *int `json:"size"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	from, size := 0, 10
	if body.From != nil {
		from = *body.From
	}
	if body.Size != nil {
		size = *body.Size
	}

	hits := []map[string]any{}
	for i := from; i < len(ids) && i < from+size; i++ {
		hits = append(hits, map[string]any{"_index": index, "_id": ids[i], "_source": docs[ids[i]]})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits": map[string]any{
			"total": map[string]any{"value": len(ids), "relation": "eq"},
			"hits":  hits,
		},
	})
}

func (f *fakeEngine) bulk(w http.ResponseWriter, r *http.Request) {
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var items []map[string]any
	for scanner.Scan() {
		var action map[string]struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &action); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		meta, ok := action["index"]
		if !ok || !scanner.Scan() {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed bulk body"})
			return
		}
		if f.indices[meta.Index] == nil {
			f.indices[meta.Index] = map[string]json.RawMessage{}
		}
		f.indices[meta.Index][meta.ID] = append(json.RawMessage(nil), scanner.Bytes()...)
		items = append(items, map[string]any{"index": map[string]any{"_id": meta.ID, "status": 201}})
	}
	writeJSON(w, http.StatusOK, map[string]any{"errors": false, "items": items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("fake engine: %v", err))
	}
}
