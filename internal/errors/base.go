package errors

import "fmt"

// base holds the fields shared by the error types of this package.
type base struct {
	message string
	err     error
}

func (b base) error() string {
	if b.err == nil {
		return b.message
	}
	return fmt.Sprintf("%s: %v", b.message, b.err)
}

func (b base) Unwrap() error {
	return b.err
}
