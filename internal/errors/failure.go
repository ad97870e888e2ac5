package errors

import (
	"errors"
	"fmt"
)

const (
	StatusNotFound = "404"
	CodeNotFound   = "ENOTFOUND"
)

// Kind classifies a Failure.
type Kind int

const (
	KindNotFound Kind = iota
	KindCreateFailed
)

// ErrNotReady is returned by a store used before it was initialised.
var ErrNotReady = errors.New("store is not initialised")

// Failure is the shape every translated store error takes at the host
// boundary.
type Failure struct {
	base
	Kind   Kind   `json:"-"`
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (f Failure) Error() string {
	return f.error()
}

// NewNotFound reports that the resourceType/id target of an operation is
// missing. title names the operation, e.g. "Requested resource does not exist".
func NewNotFound(title, resourceType, id string, err ...error) Failure {
	detail := fmt.Sprintf("There is no %s with id %s", resourceType, id)
	return Failure{
		base: base{
			message: fmt.Sprintf("%s: %s", title, detail),
			err:     errors.Join(err...),
		},
		Kind:   KindNotFound,
		Status: StatusNotFound,
		Code:   CodeNotFound,
		Title:  title,
		Detail: detail,
	}
}

// NewCreateFailed reports that the engine rejected a write. The status and
// code stay those of a missing resource, which is what hosts already match on.
func NewCreateFailed(resourceType, id string, err ...error) Failure {
	title := "Requested resource could not be created"
	detail := fmt.Sprintf("Failed to create %s with id %s", resourceType, id)
	return Failure{
		base: base{
			message: fmt.Sprintf("%s: %s", title, detail),
			err:     errors.Join(err...),
		},
		Kind:   KindCreateFailed,
		Status: StatusNotFound,
		Code:   CodeNotFound,
		Title:  title,
		Detail: detail,
	}
}

// IsNotFound reports whether err is, or wraps, a not-found Failure.
func IsNotFound(err error) bool {
	var f Failure
	return errors.As(err, &f) && f.Kind == KindNotFound
}

// AsFailure extracts the Failure from err's chain.
func AsFailure(err error) (Failure, bool) {
	var f Failure
	ok := errors.As(err, &f)
	return f, ok
}
