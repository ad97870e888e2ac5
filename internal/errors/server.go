package errors

import "errors"

// Unexpected represents an engine or transport error surfaced untranslated.
type Unexpected struct {
	base
}

func (u Unexpected) Error() string {
	return u.error()
}

func NewUnexpected(message string, err ...error) Unexpected {
	return Unexpected{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}
