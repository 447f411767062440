// internal/domain/objectstore/objectstore.go
package objectstore

import "context"

// Store is the narrow contract with the external object storage: it
// resolves a serving URL for a stored object and deletes by reference.
// Uploads happen out of band via pre-authorized URLs.
type Store interface {
	URL(ctx context.Context, ref string) (string, error)
	Delete(ctx context.Context, ref string) error
}
