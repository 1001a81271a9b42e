package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	ErrAlreadyFavorited  = errors.New("recipe is already in favorites")
	ErrNotFavorited      = errors.New("recipe is not in favorites")
	ErrAlreadyInCart     = errors.New("recipe is already in the shopping cart")
	ErrNotInCart         = errors.New("recipe is not in the shopping cart")
	ErrAlreadySubscribed = errors.New("already subscribed to this user")
	ErrNotSubscribed     = errors.New("not subscribed to this user")
	ErrSelfSubscribe     = errors.New("subscribing to yourself is not allowed")

	ErrNotAuthor = errors.New("only the author can modify a recipe")
	ErrEmptyCart = errors.New("shopping cart is empty")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError is a field-keyed set of messages so callers can highlight
// the offending fields. It is only returned after the whole payload has been
// checked, never after a partial write.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return strings.Join(parts, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
