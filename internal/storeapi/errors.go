package storeapi

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// StatusError is any non-2xx reply other than 404.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}
