package feed

import "fmt"

// FetchError means an upstream feed could not be reached or returned a
// non-2xx status. It is contained at the aggregation boundary: one agency
// failing never aborts the others.
type FetchError struct {
	Agency Agency
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s feed fetch failed: %v", e.Agency, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError means a feed responded but its payload did not have the
// expected shape. Fatal for that agency's call only.
type ValidationError struct {
	Agency Agency
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s feed payload invalid: %s", e.Agency, e.Reason)
}

// PersistenceError means a batch of catalog writes failed during the apply
// phase. Batches already committed before it stand.
type PersistenceError struct {
	Batch int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("catalog write batch %d failed: %v", e.Batch, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
