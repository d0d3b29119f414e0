package interfaces

import "errors"

// ErrNotFound is wrapped by every repository implementation when the
// workspace-scoped row does not exist
var ErrNotFound = errors.New("not found")
