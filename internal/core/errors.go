package core

import (
	"fmt"
)

// DependencyError is returned when an outbound call to a collaborator
// (instruction store, embedder, vector index, generation backend, search
// client, reply store) fails. The underlying cause is preserved.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// SchemaError is returned when a generation stage's output does not
// match its declared schema
type SchemaError struct {
	Stage string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("stage %s returned malformed output: %v", e.Stage, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
