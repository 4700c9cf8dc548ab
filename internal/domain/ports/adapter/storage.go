package adapter

import "context"

// ObjectStorage is the port for the recordings bucket.
// Path convention: {user_id}/{meeting_id}{extension}.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, content []byte, contentType string) error
	PublicURL(path string) string
	Download(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, paths ...string) error
}
