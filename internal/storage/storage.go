package storage

import "context"

// UploadResult describes where the durable copy of an object ended up. Size
// is the stored size, which the provider may normalize.
type UploadResult struct {
	Key  string
	URL  string
	Size int64
}

// BlobStore uploads rendered documents to durable storage. Failures are
// treated as non-fatal by callers: a rendered PDF must never be reported
// failed because the storage provider hiccuped.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, mimeType string) (UploadResult, error)
}
