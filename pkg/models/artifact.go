package models

import "fmt"

// Artifact is a file-shaped payload destined for the object store,
// referenced from a canonical row through an opaque reference string.
// An artifact must be durably written before the row referencing it.
type Artifact struct {
	// Key is the deterministic object key, <source>/<stable-key>.<ext>,
	// so re-uploading the same artifact overwrites rather than duplicates
	Key         string
	ContentType string
	Body        []byte
}

// ArtifactKey builds the deterministic object key for a row artifact.
func ArtifactKey(source, stableKey, ext string) string {
	return fmt.Sprintf("%s/%s.%s", source, stableKey, ext)
}
