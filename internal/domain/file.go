package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// inlinePrefix tags a file_key whose sibling file_url column carries the
// base64-encoded payload instead of a durable storage URL.
const inlinePrefix = "inline:"

// LocationKind discriminates where a file's bytes live.
type LocationKind int

const (
	// LocationInline means the payload is embedded in the file record
	// itself, available the instant rendering finishes.
	LocationInline LocationKind = iota
	// LocationStored means the payload lives in durable blob storage and
	// the record only carries its key and URL.
	LocationStored
)

// FileLocation is the tagged union behind the file_key/file_url columns.
// Exactly one of Data or Key/URL is meaningful, selected by Kind.
type FileLocation struct {
	Kind LocationKind
	Data []byte
	Key  string
	URL  string
}

// InlineLocation embeds the payload directly in the file record.
func InlineLocation(data []byte) FileLocation {
	return FileLocation{Kind: LocationInline, Data: data}
}

// StoredLocation points at an object in durable blob storage.
func StoredLocation(key, url string) FileLocation {
	return FileLocation{Kind: LocationStored, Key: key, URL: url}
}

// EncodeColumns serializes the location into the two persisted text columns.
// Inline payloads are keyed "inline:<fileID>" with the base64 bytes in the
// URL column.
func (l FileLocation) EncodeColumns(fileID string) (fileKey, fileURL string) {
	switch l.Kind {
	case LocationInline:
		return inlinePrefix + fileID, base64.StdEncoding.EncodeToString(l.Data)
	default:
		return l.Key, l.URL
	}
}

// DecodeLocation reconstructs a FileLocation from the persisted columns.
func DecodeLocation(fileKey, fileURL string) (FileLocation, error) {
	if !strings.HasPrefix(fileKey, inlinePrefix) {
		return StoredLocation(fileKey, fileURL), nil
	}
	data, err := base64.StdEncoding.DecodeString(fileURL)
	if err != nil {
		return FileLocation{}, fmt.Errorf("decode inline payload for %s: %w", fileKey, err)
	}
	return InlineLocation(data), nil
}

// File is a rendered PDF owned by a job. It is created in the inline regime
// as soon as rendering finishes and mutated at most once when the async
// durable upload succeeds.
type File struct {
	ID        string
	JobID     string
	UserID    *string
	Location  FileLocation
	MimeType  string
	Size      int64
	CreatedAt time.Time
}
