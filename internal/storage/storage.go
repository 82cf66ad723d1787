// Package storage abstracts the blob store holding source documents and
// generated audio. The pipeline only ever sees opaque references.
package storage

import (
	"context"
	"fmt"
)

type BlobStore interface {
	Download(ctx context.Context, ref string) ([]byte, error)
	// Upload writes data under key and returns the stored reference.
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

// AudioKey is the deterministic object key for a document's narration.
// Keeping it derived from (owner, document) makes regenerate-audio runs
// overwrite rather than accumulate blobs.
func AudioKey(userID uint, documentID, ext string) string {
	return fmt.Sprintf("users/%d/documents/%s/audio.%s", userID, documentID, ext)
}

// DocumentKey is the object key for an uploaded source file.
func DocumentKey(userID uint, documentID, fileName string) string {
	return fmt.Sprintf("users/%d/documents/%s/%s", userID, documentID, fileName)
}
