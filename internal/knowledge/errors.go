package knowledge

import (
	"errors"
	"fmt"
)

// ErrConfigNotFound is returned by ReadConfig when no entry has the requested name.
var ErrConfigNotFound = errors.New("config entry not found")

// StoreError wraps every failure of the vector store with the operation that
// hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("knowledge store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
