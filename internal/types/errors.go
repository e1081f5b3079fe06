package types

import "fmt"

// Resource names the kind of local resource an I/O error refers to.
type Resource string

const (
	ResourceStore    Resource = "store"
	ResourceFlatFile Resource = "flat_file"
)

// ResourceError is a fatal I/O failure on the store or the flat file.
type ResourceError struct {
	Resource Resource
	Path     string
	Op       string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Resource, e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ResourceError) Unwrap() error {
	return e.Err
}
