package types

import (
	"fmt"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is a resource change carried over the change feed.
type Event struct {
	Op        Op       `json:"op"`
	Type      string   `json:"type"`
	ID        string   `json:"id"`
	Resource  Document `json:"resource,omitempty"`
	TimeStamp int64    `json:"ts_ms"`
}

func (e Event) Validate() error {
	switch e.Op {
	case OpCreate, OpUpdate:
		if e.Resource == nil {
			return fmt.Errorf("resource is nil for %s %s", e.Op, e.ID)
		}
	case OpDelete:
	default:
		return fmt.Errorf("invalid op: %q", e.Op)
	}
	if e.Type == "" {
		return fmt.Errorf("type is empty for %+v", e)
	}
	if e.ID == "" && e.Op != OpCreate {
		return fmt.Errorf("id is empty for %s of %s", e.Op, e.Type)
	}
	return nil
}

// Request returns the request addressing the event's resource.
func (e Event) Request() Request {
	return Request{Type: e.Type, ID: e.ID}
}
