package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/BRO3886/opensearch-resource-store/internal/config"
	external "github.com/opensearch-project/opensearch-go/v2"
	api "github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// NewClient builds the engine client shared by the stores of one deployment.
func NewClient(c *config.Config) (*external.Client, error) {
	return external.NewClient(external.Config{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Addresses:  c.Opensearch.URLs,
		MaxRetries: c.Opensearch.MaxRetries,
		Username:   c.Opensearch.Username,
		Password:   c.Opensearch.Password,
	})
}

// IndexName returns the index holding the resources of one type.
func IndexName(prefix, resource string) string {
	resource = strings.ToLower(resource)
	if prefix == "" {
		return resource
	}
	return strings.ToLower(prefix) + "-" + resource
}

// documentID escapes id for use as a path segment. The client parses the
// request path, so an unescaped "?", "#" or "%" would change the target.
func documentID(id string) string {
	return url.PathEscape(id)
}

// engineError carries a non-2xx engine response.
type engineError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *engineError) Error() string {
	return fmt.Sprintf("%s %s", e.Status, e.Body)
}

func asEngineError(err error, target **engineError) bool {
	return errors.As(err, target)
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// do executes req and decodes a successful response body into out, which may
// be nil. Error responses come back as *engineError.
func (s *Store) do(ctx context.Context, req api.Request, out any) error {
	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return &engineError{StatusCode: resp.StatusCode, Status: resp.Status(), Body: string(body)}
	}

	if resp.HasWarnings() {
		log.Warnf("[opensearch] warnings: %v", resp.Warnings())
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
